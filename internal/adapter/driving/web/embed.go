package web

import "embed"

// StaticFS holds the popup stylesheet.
//
//go:embed static/*
var StaticFS embed.FS
