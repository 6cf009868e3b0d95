package pebble

import (
	"encoding/binary"
)

// Key layout. Components are separated by a zero byte; versions are
// big-endian so the rows of one media package sort by version.
//
//	s\x00<org>\x00<mp>\x00<version>      snapshot row
//	p\x00<org>\x00<mp>\x00<ns>\x00<name> property row
//	c\x00<org>\x00<mp>                   version claim
const (
	snapshotTag = 's'
	propertyTag = 'p'
	claimTag    = 'c'
	sep         = 0
)

func key(tag byte, parts ...string) []byte {
	n := 1
	for _, p := range parts {
		n += len(p) + 1
	}
	k := make([]byte, 0, n+8)
	k = append(k, tag)
	for _, p := range parts {
		k = append(k, sep)
		k = append(k, p...)
	}
	return k
}

// prefix terminates a key built by key so that it only matches whole
// components.
func prefix(tag byte, parts ...string) []byte {
	return append(key(tag, parts...), sep)
}

func snapshotKey(org, mp string, version int64) []byte {
	k := prefix(snapshotTag, org, mp)
	return binary.BigEndian.AppendUint64(k, uint64(version))
}

func propertyKey(org, mp, namespace, name string) []byte {
	return key(propertyTag, org, mp, namespace, name)
}

func claimKey(org, mp string) []byte {
	return key(claimTag, org, mp)
}

// upperBound returns the smallest key greater than every key with prefix p.
func upperBound(p []byte) []byte {
	end := append([]byte(nil), p...)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}

func encodeVersion(v int64) []byte {
	return binary.BigEndian.AppendUint64(nil, uint64(v))
}

func decodeVersion(b []byte) int64 {
	if len(b) != 8 {
		return 0
	}
	return int64(binary.BigEndian.Uint64(b))
}
