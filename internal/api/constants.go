package api

import "time"

const (
	DefaultBaseURL      = "https://api.fiftyone.dev"
	DefaultTimeout      = 30 * time.Second
	DefaultImageTimeout = 60 * time.Second
	DefaultMaxHeight    = 900
)

const (
	pathStocks       = "/stocks"
	pathWebcams      = "/webcams"
	pathAviationLSZI = "/aviation/lszi"
	pathPictures     = "/pictures"
	pathLatestImage  = "/image/latest"
	pathRandomImage  = "/image/random"
)
