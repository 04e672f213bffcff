package build

// Version is the server version. Release builds override it through
// ldflags.
var Version = "0.0.0"
