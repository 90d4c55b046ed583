// Package cli implements the qrshare command-line client.
//
//	qrshare-cli [-a addr] [-t seconds] [-c file] <command> [flags] [args]
//
// Commands:
//   - upload <file> [-p] [-type mime]   store a file, print its link and QR code
//   - download <link|id> [-o file] [-p] fetch a file; "-o -" writes to stdout
//   - stats <link|id>                   show the download count
//   - revoke <link>                     delete the file now
//
// Passwords are read from the terminal without echo.
package cli
