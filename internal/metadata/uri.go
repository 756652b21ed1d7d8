package metadata

import (
	"strings"
)

// Public gateways for content-addressed storage, in priority order. Any
// single gateway may be down or rate limited, so fetches rotate through
// the list.
var ipfsGateways = []string{
	"https://ipfs.io/ipfs/",
	"https://cloudflare-ipfs.com/ipfs/",
	"https://gateway.pinata.cloud/ipfs/",
}

const arweaveGateway = "https://arweave.net/"

// NormalizeURI converts a metadata URI into a fetchable HTTP(S) URL using the
// primary gateway. Accepted forms: ipfs://<cid>[/path], ar://<id>, a bare
// content-addressed id, or a plain HTTP(S) URL. Returns "" for anything else.
func NormalizeURI(uri string) string {
	urls := CandidateURLs(uri)
	if len(urls) == 0 {
		return ""
	}
	return urls[0]
}

// CandidateURLs returns every gateway URL to try for a URI, primary first.
// Plain HTTP(S) and arweave URIs have a single candidate; content-addressed
// URIs get one per gateway.
func CandidateURLs(uri string) []string {
	uri = strings.TrimSpace(uri)
	if uri == "" {
		return nil
	}

	switch {
	case strings.HasPrefix(uri, "http://"), strings.HasPrefix(uri, "https://"):
		// Rewrite URLs already pointing at a known IPFS gateway so that
		// rotation still applies when that gateway is down.
		if cid, ok := stripKnownGateway(uri); ok {
			return ipfsURLs(cid)
		}
		return []string{uri}

	case strings.HasPrefix(uri, "ipfs://"):
		cid := strings.TrimPrefix(uri, "ipfs://")
		cid = strings.TrimPrefix(cid, "ipfs/")
		return ipfsURLs(cid)

	case strings.HasPrefix(uri, "ar://"):
		return []string{arweaveGateway + strings.TrimPrefix(uri, "ar://")}

	case isBareCID(uri):
		return ipfsURLs(uri)
	}

	return nil
}

func ipfsURLs(cid string) []string {
	if cid == "" {
		return nil
	}
	urls := make([]string, len(ipfsGateways))
	for i, gw := range ipfsGateways {
		urls[i] = gw + cid
	}
	return urls
}

func stripKnownGateway(url string) (string, bool) {
	for _, gw := range ipfsGateways {
		if strings.HasPrefix(url, gw) {
			return strings.TrimPrefix(url, gw), true
		}
	}
	return "", false
}

// isBareCID reports whether s looks like a raw IPFS content id: CIDv0
// ("Qm" + 44 base58 chars) or CIDv1 ("baf" prefix).
func isBareCID(s string) bool {
	if strings.ContainsAny(s, "/ ") {
		return false
	}
	if strings.HasPrefix(s, "Qm") && len(s) == 46 {
		return true
	}
	return strings.HasPrefix(s, "baf") && len(s) >= 46
}
