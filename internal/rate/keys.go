package rate

func loginUserKey(identifier string) string {
	return "al:" + identifier
}

func loginIPKey(ip string) string {
	return "ali:" + ip
}

func registerIPKey(ip string) string {
	return "ar:" + ip
}
