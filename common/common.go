package common

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Splits a comma separated string consisting of key value pairs,
// e.g. "k1=v1,k2=v2", into a map. Malformed pairs are skipped.
func SplitCommaSepToMap(commaSepString string) map[string]string {
	m := make(map[string]string)
	for _, pair := range strings.Split(commaSepString, ",") {
		if pair == "" {
			continue
		}
		kv := strings.SplitN(pair, "=", 2)
		if len(kv) != 2 {
			continue
		}
		m[strings.TrimSpace(kv[0])] = strings.TrimSpace(kv[1])
	}
	return m
}

// ParsePeerMap parses "1=host:port,2=host:port" into peer id -> address.
// Unlike SplitCommaSepToMap, a key that is not an integer is an error.
func ParsePeerMap(commaSepString string) (map[int32]string, error) {
	peers := make(map[int32]string)
	for k, v := range SplitCommaSepToMap(commaSepString) {
		id, err := strconv.ParseInt(k, 10, 32)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid peer id %q", k)
		}
		if v == "" {
			return nil, errors.Errorf("empty address for peer %d", id)
		}
		peers[int32(id)] = v
	}
	return peers, nil
}
