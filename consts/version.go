package consts

// Version is the release version, set at build time with -ldflags "-X github.com/alissonfar/newApp-sub001/consts.Version=..."
var Version = "dev"
