package main

// General API documentation for swaggo. Regenerate internal/apidocs with
// `swag init -g cmd/mlserve/docs.go -o internal/apidocs` after changing handlers.
//
// @title           mlserve API
// @version         1.0
// @description     Serves predictions from models resolved against an MLflow registry.
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
