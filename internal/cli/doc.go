// Package cli implements the qrshare command line.
package cli
