package httpapi

import (
	"html/template"
	"net/http"

	"github.com/MrEthical07/sessiongate/middleware"
)

// Pages are shells; the browser fills them from the JSON API.
var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
</head>
<body>
<main id="app" data-page="{{.Page}}"{{if .Slug}} data-slug="{{.Slug}}"{{end}}{{if .User}} data-user="{{.User}}"{{end}}></main>
</body>
</html>
`))

type pageData struct {
	Title string
	Page  string
	Slug  string
	User  string
}

func (s *Server) pages() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.page("Blog", "home"))
	mux.HandleFunc("GET /auth", s.page("Sign in", "auth"))
	mux.HandleFunc("GET /profile", s.page("Profile", "profile"))
	mux.HandleFunc("GET /search", s.page("Search", "search"))
	mux.HandleFunc("GET /post/create-post", s.page("New post", "create-post"))
	mux.HandleFunc("GET /post/edit/{slug}", s.page("Edit post", "edit-post"))
	mux.HandleFunc("GET /post/{slug}", s.page("Post", "post"))
	return mux
}

func (s *Server) page(title, name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data := pageData{Title: title, Page: name, Slug: r.PathValue("slug")}
		if claims, ok := middleware.ClaimsFromContext(r.Context()); ok {
			data.User = claims.Username
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := pageTemplate.Execute(w, data); err != nil {
			s.logger.WithError(err).Warn("page render failed")
		}
	}
}
