package main

import "shopauth/internal/app"

// @title           Shop auth API
// @version         1.0
// @description     Регистрация, вход и сброс пароля по одноразовому коду.
// @BasePath        /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
func main() {
	app.Run()
}
