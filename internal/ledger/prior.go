package ledger

import "strings"

// prior seeds starting credibility for sources the ledger has never
// seen, from configured tier lists. Wire services and official outlets
// can start above the neutral default; everything else starts neutral.
type prior struct {
	primaryMap   map[string]bool
	secondaryMap map[string]bool

	defaultScore   float64
	primaryScore   float64
	secondaryScore float64
}

func newPrior(primary, secondary []string, defaultScore, primaryScore, secondaryScore float64) *prior {
	p := &prior{
		primaryMap:     make(map[string]bool),
		secondaryMap:   make(map[string]bool),
		defaultScore:   defaultScore,
		primaryScore:   primaryScore,
		secondaryScore: secondaryScore,
	}
	for _, d := range primary {
		p.primaryMap[strings.ToLower(d)] = true
	}
	for _, d := range secondary {
		p.secondaryMap[strings.ToLower(d)] = true
	}
	return p
}

// score returns the starting credibility for a source identity
func (p *prior) score(source string) float64 {
	host := strings.ToLower(source)
	if idx := strings.Index(host, ":"); idx > 0 {
		host = host[:idx]
	}

	if matchDomain(p.primaryMap, host) {
		return p.primaryScore
	}
	if matchDomain(p.secondaryMap, host) {
		return p.secondaryScore
	}
	return p.defaultScore
}

// matchDomain checks host against a domain set, including subdomains
// (foo.reuters.com matches reuters.com).
func matchDomain(set map[string]bool, host string) bool {
	if set[host] {
		return true
	}
	for domain := range set {
		if strings.HasSuffix(host, "."+domain) {
			return true
		}
	}
	return false
}
