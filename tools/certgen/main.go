// Command certgen writes a development CA, a server certificate and
// optionally a client certificate, for running the staff auth server with
// -cert/-key and the desk client with -ca.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/staffdesk/staffdesk/internal/certgen"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "certgen:", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("certgen", flag.ContinueOnError)
	fs.SetOutput(out)
	dir := fs.String("dir", "certs", "output directory")
	hosts := fs.String("hosts", "localhost,127.0.0.1", "comma-separated server host names and IPs")
	client := fs.String("client", "", "issue a client certificate with this common name")
	caCert := fs.String("ca-cert", "", "existing CA certificate to sign with")
	caKey := fs.String("ca-key", "", "existing CA key to sign with")
	validity := fs.Duration("validity", 365*24*time.Hour, "leaf certificate validity")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var ca *certgen.Authority
	if *caCert != "" || *caKey != "" {
		var err error
		if ca, err = certgen.LoadAuthority(*caCert, *caKey); err != nil {
			return err
		}
	} else {
		var (
			pair certgen.Pair
			err  error
		)
		ca, pair, err = certgen.NewAuthority("Staff Desk Dev CA", 10*365*24*time.Hour)
		if err != nil {
			return err
		}
		if err := write(out, pair, *dir, "ca"); err != nil {
			return err
		}
	}

	var hostList []string
	for _, h := range strings.Split(*hosts, ",") {
		if h = strings.TrimSpace(h); h != "" {
			hostList = append(hostList, h)
		}
	}
	server, err := ca.IssueServer(hostList, *validity)
	if err != nil {
		return fmt.Errorf("server cert: %w", err)
	}
	if err := write(out, server, *dir, "server"); err != nil {
		return err
	}

	if *client != "" {
		pair, err := ca.IssueClient(*client, *validity)
		if err != nil {
			return fmt.Errorf("client cert: %w", err)
		}
		if err := write(out, pair, *dir, "client"); err != nil {
			return err
		}
	}
	return nil
}

func write(out io.Writer, p certgen.Pair, dir, name string) error {
	certPath, keyPath, err := p.Write(dir, name)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	fmt.Fprintf(out, "wrote %s and %s\n", certPath, keyPath)
	return nil
}
