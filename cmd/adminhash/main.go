// Command adminhash prints an argon2id hash for ADMIN_PASSWORD_HASH.
//
// The password is read from the ADMIN_PASSWORD environment variable, or from
// the first line of stdin when that is unset.
package main

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strings"

	httpserver "github.com/fairyhunter13/cv-assistant/internal/adapter/httpserver"
)

func main() {
	pw := os.Getenv("ADMIN_PASSWORD")
	if pw == "" {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			slog.Error("read password", slog.Any("error", err))
			os.Exit(1)
		}
		pw = strings.TrimRight(line, "\r\n")
	}
	if pw == "" {
		slog.Error("empty password")
		os.Exit(1)
	}
	hash, err := httpserver.HashPassword(pw, httpserver.DefaultArgon2Params)
	if err != nil {
		slog.Error("hash password", slog.Any("error", err))
		os.Exit(1)
	}
	fmt.Println(hash)
}
