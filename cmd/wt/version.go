package main

// Version is overridden by ldflags at build time.
var Version = "0.1.0"
