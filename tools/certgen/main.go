// Package main writes a development CA and server certificate for running
// the API over TLS:
//
//	go run ./tools/certgen -dir certs -hosts localhost,127.0.0.1
//	server -tls-cert certs/server.crt -tls-key certs/server.key
//	client -url https://localhost:8080 -ca certs/ca.crt
package main

import (
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/afero"
	"github.com/thunderdz19/sero-est/internal/certgen"
)

func main() {
	dir := flag.String("dir", "certs", "output directory")
	hosts := flag.String("hosts", "localhost,127.0.0.1", "comma separated server names and IPs")
	flag.Parse()

	var names []string
	for _, h := range strings.Split(*hosts, ",") {
		if h = strings.TrimSpace(h); h != "" {
			names = append(names, h)
		}
	}
	if err := certgen.Generate(afero.NewOsFs(), *dir, names, time.Now()); err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Certificates generated into ./%s\n", *dir)
}
