// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package quorum

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/luxfi/election/vote"
)

// ErrConfigParse reports an unparseable quorum configuration. Receivers log
// it and keep their existing verifier.
var ErrConfigParse = errors.New("unable to parse quorum configuration")

// ParseConfig parses the canonical configuration serialization produced by
// Verifier.String: one "server.<sid>=<weight>" line per member followed by a
// "version=<hex>" line. It returns a Majority when every weight is 1 and a
// Weighted verifier otherwise.
func ParseConfig(s string) (Verifier, error) {
	weights := make(map[vote.ServerID]uint32)
	var version int64
	sawVersion := false

	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		key, value, found := strings.Cut(line, "=")
		if !found {
			return nil, fmt.Errorf("%w: missing '=' in %q", ErrConfigParse, line)
		}
		switch {
		case strings.HasPrefix(key, "server."):
			sid, err := strconv.ParseInt(strings.TrimPrefix(key, "server."), 10, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: bad server id in %q: %v", ErrConfigParse, line, err)
			}
			weight, err := strconv.ParseUint(value, 10, 32)
			if err != nil {
				return nil, fmt.Errorf("%w: bad weight in %q: %v", ErrConfigParse, line, err)
			}
			weights[vote.ServerID(sid)] = uint32(weight)
		case key == "version":
			v, err := strconv.ParseInt(value, 16, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: bad version in %q: %v", ErrConfigParse, line, err)
			}
			version = v
			sawVersion = true
		default:
			return nil, fmt.Errorf("%w: unknown key in %q", ErrConfigParse, line)
		}
	}

	if len(weights) == 0 {
		return nil, fmt.Errorf("%w: no voting members", ErrConfigParse)
	}
	if !sawVersion {
		return nil, fmt.Errorf("%w: no version", ErrConfigParse)
	}

	uniform := true
	for _, w := range weights {
		if w != 1 {
			uniform = false
			break
		}
	}
	if uniform {
		sids := make([]vote.ServerID, 0, len(weights))
		for sid := range weights {
			sids = append(sids, sid)
		}
		return NewMajority(sids, version), nil
	}
	return NewWeighted(weights, version), nil
}
