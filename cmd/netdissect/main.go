// netdissect is a one-shot command-line dissection tool: it reads a single
// hex-encoded packet from a file (or stdin), parses it as the protocol unit
// named by -kind, prints a human-readable summary, and optionally appends a
// flattened CSV record of what it found.
package main

import (
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"io/ioutil"
	"log"
	"os"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/m-lab/go/flagx"
	"github.com/m-lab/go/prometheusx"
	"github.com/m-lab/go/rtx"

	"github.com/m-lab/netdissect/dns"
	"github.com/m-lab/netdissect/dot11"
	"github.com/m-lab/netdissect/internal/session"
	"github.com/m-lab/netdissect/ipv6"
)

func init() {
	// Always prepend the filename and line number.
	log.SetFlags(log.LstdFlags | log.Lshortfile)
}

var (
	inFile   = flag.String("in", "", "File holding a single hex-encoded packet; defaults to stdin")
	kind     = flag.String("kind", "ipv6", "Protocol unit to parse the buffer as: ipv6, dns, or dot11")
	promPort = flag.String("prom", "", "Prometheus metrics export address and port, e.g. ':9090'; empty disables export")
	csvOut   = flag.String("csv", "", "Append a flattened CSV summary record to this file; empty disables it")
)

// Record is the flattened per-dissection summary gocsv marshals to -csv:
// the DNS ID and question names, the IPv6 source and destination
// addresses, and the 802.11 ESSID share one row shape, with irrelevant
// fields left empty, the same
// flattening approach the teacher's csvtool applies to ArchiveRecord.
type Record struct {
	Session    string `csv:"session"`
	Kind       string `csv:"kind"`
	IPv6Src    string `csv:"ipv6_src"`
	IPv6Dst    string `csv:"ipv6_dst"`
	DNSID      string `csv:"dns_id"`
	DNSNames   string `csv:"dns_names"`
	Dot11ESSID string `csv:"dot11_essid"`
}

func readInput() []byte {
	var raw []byte
	var err error
	if *inFile == "" {
		raw, err = ioutil.ReadAll(os.Stdin)
	} else {
		raw, err = ioutil.ReadFile(*inFile)
	}
	rtx.Must(err, "Could not read input")

	hexText := strings.TrimSpace(string(raw))
	hexText = strings.ReplaceAll(hexText, " ", "")
	hexText = strings.ReplaceAll(hexText, "\n", "")
	b, err := hex.DecodeString(hexText)
	rtx.Must(err, "Could not decode input as hex")
	return b
}

func dissect(tag string, b []byte) Record {
	rec := Record{Session: tag, Kind: *kind}

	switch *kind {
	case "ipv6":
		u := ipv6.New()
		rtx.Must(u.Parse(b), "Could not parse input as IPv6")
		fmt.Printf("ipv6: src=%s dst=%s next=%d ext_headers=%d\n",
			u.Header.Src, u.Header.Dst, u.Header.NextHeader, len(u.ExtHeaders))
		rec.IPv6Src = u.Header.Src.String()
		rec.IPv6Dst = u.Header.Dst.String()

	case "dns":
		u := dns.New()
		rtx.Must(u.Parse(b), "Could not parse input as DNS")
		qs, err := u.Questions()
		rtx.Must(err, "Could not decode DNS questions")
		names := make([]string, 0, len(qs))
		for _, q := range qs {
			names = append(names, q.Name)
		}
		fmt.Printf("dns: id=0x%04x questions=%d answers=%d names=%s\n",
			u.ID, u.QDCount, u.ANCount, strings.Join(names, ","))
		rec.DNSID = fmt.Sprintf("0x%04x", u.ID)
		rec.DNSNames = strings.Join(names, ",")

	case "dot11":
		u := dot11.New()
		rtx.Must(u.Parse(b), "Could not parse input as 802.11")
		fmt.Printf("dot11: type=%d subtype=%d addr1=%s addr2=%s essid=%q\n",
			u.FC.Type, u.FC.Subtype, u.Addr1, u.Addr2, u.ESSID())
		rec.Dot11ESSID = u.ESSID()

	default:
		log.Fatalf("unknown -kind %q: want ipv6, dns, or dot11", *kind)
	}
	return rec
}

func appendCSV(path string, rec Record) {
	if path == "" {
		return
	}
	var existing []*Record
	if f, err := os.Open(path); err == nil {
		rtx.Must(gocsv.Unmarshal(f, &existing), "Could not read existing CSV at %s", path)
		f.Close()
	}
	existing = append(existing, &rec)

	f, err := os.Create(path)
	rtx.Must(err, "Could not create %s", path)
	defer f.Close()
	rtx.Must(gocsv.Marshal(existing, f), "Could not write CSV to %s", path)
}

func main() {
	flag.Parse()
	flagx.ArgsFromEnv(flag.CommandLine)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if *promPort != "" {
		promSrv := prometheusx.MustStartPrometheus(*promPort)
		defer promSrv.Shutdown(ctx)
	}

	tag := session.Tag("netdissect")
	b := readInput()
	rec := dissect(tag, b)
	appendCSV(*csvOut, rec)
}
