package network

import (
	"math/rand"
	"net"
	"strconv"
)

// DownloadPath is the only route the file server answers with the file.
const DownloadPath = "/download"

// Ephemeral ports are drawn from [MinPort, MaxPort).
const (
	MinPort = 1024
	MaxPort = 65535
)

// BuildLink returns the download URL for host and port.
func BuildLink(host string, port int) string {
	return "http://" + net.JoinHostPort(host, strconv.Itoa(port)) + DownloadPath
}

// RandomPort draws a port in [MinPort, MaxPort).
func RandomPort() int {
	return MinPort + rand.Intn(MaxPort-MinPort)
}
