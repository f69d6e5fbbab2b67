package main

import (
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/izzyreal/wsbridge/internal/discovery"
)

var discoveryLookup = discovery.Lookup

func runDiscover(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("discover", flag.ContinueOnError)
	timeout := fs.Duration("timeout", 2*time.Second, "how long to browse")
	if err := fs.Parse(args); err != nil {
		return err
	}
	servers, err := discoveryLookup(*timeout)
	if err != nil {
		return err
	}
	if len(servers) == 0 {
		fmt.Fprintln(out, "no servers found")
		return nil
	}
	for _, s := range servers {
		fmt.Fprintf(out, "%s\t%s\tversion=%s\tapi=%s\n", s.Instance, s.URL, strings.TrimSpace(s.Version), strings.TrimSpace(s.APIVersion))
	}
	return nil
}
