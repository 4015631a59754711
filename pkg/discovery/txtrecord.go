package discovery

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// TXT record keys.
const (
	TXTKeyPath     = "path"
	TXTKeyVersion  = "ver"
	TXTKeyChannels = "ch"
	TXTKeyMode     = "mode"
)

// TXTRecordMap is a map of TXT record key-value pairs.
type TXTRecordMap map[string]string

// EncodeServiceTXT creates TXT records for the front end.
func EncodeServiceTXT(info *ServiceInfo) TXTRecordMap {
	txt := make(TXTRecordMap)

	path := info.Path
	if path == "" {
		path = "/"
	}
	txt[TXTKeyPath] = path
	txt[TXTKeyVersion] = info.Version
	txt[TXTKeyChannels] = strconv.Itoa(info.Channels)

	if info.Mode != "" {
		txt[TXTKeyMode] = info.Mode
	}

	return txt
}

// DecodeServiceTXT parses TXT records of a controller advertisement.
func DecodeServiceTXT(txt TXTRecordMap) (*ServiceInfo, error) {
	info := &ServiceInfo{}

	var ok bool
	info.Path, ok = txt[TXTKeyPath]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingRequired, TXTKeyPath)
	}
	info.Version, ok = txt[TXTKeyVersion]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingRequired, TXTKeyVersion)
	}

	chStr, ok := txt[TXTKeyChannels]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingRequired, TXTKeyChannels)
	}
	n, err := strconv.Atoi(chStr)
	if err != nil || n < 0 {
		return nil, fmt.Errorf("%w: %s=%q", ErrInvalidTXTRecord, TXTKeyChannels, chStr)
	}
	info.Channels = n

	info.Mode = txt[TXTKeyMode]
	return info, nil
}

// TXTRecordsToStrings converts a TXTRecordMap to "key=value" strings in
// key order.
func TXTRecordsToStrings(txt TXTRecordMap) []string {
	keys := make([]string, 0, len(txt))
	for k := range txt {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	result := make([]string, 0, len(txt))
	for _, k := range keys {
		result = append(result, fmt.Sprintf("%s=%s", k, txt[k]))
	}
	return result
}

// StringsToTXTRecords parses a slice of "key=value" strings into a TXTRecordMap.
func StringsToTXTRecords(strs []string) TXTRecordMap {
	txt := make(TXTRecordMap)
	for _, s := range strs {
		key, value, found := strings.Cut(s, "=")
		if found {
			txt[key] = value
		} else if key != "" {
			// Key without value (boolean flag)
			txt[key] = ""
		}
	}
	return txt
}

// InstanceName returns the instance label for info, truncated to the DNS
// label limit.
func InstanceName(info *ServiceInfo) string {
	name := info.InstanceName
	if name == "" {
		name = DefaultInstanceName
	}
	if len(name) > MaxInstanceNameLen {
		name = name[:MaxInstanceNameLen]
	}
	return name
}
