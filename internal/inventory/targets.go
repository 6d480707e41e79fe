package inventory

import (
	"fmt"
	"net/netip"
	"strings"
)

// MaxTargetHosts caps how many devices a single target entry may expand to.
const MaxTargetHosts = 65536

// ExpandTargets turns device list entries into individual addresses. An
// entry is a single address, a CIDR block ("10.1.1.0/28") or an inclusive
// range ("10.1.1.10-10.1.1.20"). IPv4 blocks wider than /31 skip the network
// and broadcast addresses. Order follows the input; duplicates are kept for
// the fleet to collapse.
func ExpandTargets(entries []string) ([]string, error) {
	var out []string
	for _, e := range entries {
		hosts, err := ExpandTarget(e)
		if err != nil {
			return nil, err
		}
		out = append(out, hosts...)
	}
	return out, nil
}

// ExpandTarget expands one entry.
func ExpandTarget(entry string) ([]string, error) {
	entry = strings.TrimSpace(entry)

	if strings.Contains(entry, "/") {
		prefix, err := netip.ParsePrefix(entry)
		if err != nil {
			return nil, fmt.Errorf("invalid CIDR target %q: %w", entry, err)
		}
		return expandPrefix(prefix)
	}

	if start, end, ok := strings.Cut(entry, "-"); ok {
		first, err := netip.ParseAddr(strings.TrimSpace(start))
		if err != nil {
			return nil, fmt.Errorf("invalid range start in %q: %w", entry, err)
		}
		last, err := netip.ParseAddr(strings.TrimSpace(end))
		if err != nil {
			return nil, fmt.Errorf("invalid range end in %q: %w", entry, err)
		}
		return expandRange(first, last)
	}

	addr, err := netip.ParseAddr(entry)
	if err != nil {
		return nil, fmt.Errorf("invalid device address %q", entry)
	}
	return []string{addr.String()}, nil
}

func expandPrefix(prefix netip.Prefix) ([]string, error) {
	if prefix.Addr().BitLen()-prefix.Bits() > 16 {
		return nil, fmt.Errorf("CIDR target %s is larger than %d hosts", prefix, MaxTargetHosts)
	}

	prefix = prefix.Masked()
	var hosts []string
	for addr := prefix.Addr(); addr.IsValid() && prefix.Contains(addr); addr = addr.Next() {
		hosts = append(hosts, addr.String())
	}

	if prefix.Addr().Is4() && prefix.Bits() < 31 && len(hosts) >= 2 {
		hosts = hosts[1 : len(hosts)-1]
	}
	return hosts, nil
}

func expandRange(first, last netip.Addr) ([]string, error) {
	if first.Is4() != last.Is4() {
		return nil, fmt.Errorf("range %s-%s mixes IPv4 and IPv6", first, last)
	}
	if first.Compare(last) > 0 {
		return nil, fmt.Errorf("range start %s is after end %s", first, last)
	}

	var hosts []string
	for addr := first; ; addr = addr.Next() {
		hosts = append(hosts, addr.String())
		if addr == last {
			return hosts, nil
		}
		if len(hosts) >= MaxTargetHosts {
			return nil, fmt.Errorf("range %s-%s is larger than %d hosts", first, last, MaxTargetHosts)
		}
	}
}
