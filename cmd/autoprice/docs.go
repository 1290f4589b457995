package main

//go:generate swag init -g cmd/autoprice/main.go -o docs

// @title           Auto Price Engine API
// @version         0.1.0
// @description     Automated P2P listing pricing, rule management and audit logs.
// @host            localhost:8080
// @BasePath        /
// @schemes         http
