package pipeline

import (
	"strconv"
	"strings"
)

// dataSets holds the data-source names of the collectd types the agent sees
// most often, for value lists that arrive without dsnames.
var dataSets = map[string][]string{
	"if_octets":          {"rx", "tx"},
	"if_packets":         {"rx", "tx"},
	"if_errors":          {"rx", "tx"},
	"if_dropped":         {"rx", "tx"},
	"io_octets":          {"rx", "tx"},
	"io_packets":         {"rx", "tx"},
	"disk_octets":        {"read", "write"},
	"disk_ops":           {"read", "write"},
	"disk_time":          {"read", "write"},
	"disk_merged":        {"read", "write"},
	"disk_io_time":       {"io_time", "weighted_io_time"},
	"ps_disk_octets":     {"read", "write"},
	"ps_disk_ops":        {"read", "write"},
	"ps_count":           {"processes", "threads"},
	"ps_cputime":         {"user", "syst"},
	"ps_pagefaults":      {"minflt", "majflt"},
	"load":               {"shortterm", "midterm", "longterm"},
	"df":                 {"used", "free"},
	"cpu":                {"value"},
	"cpufreq":            {"value"},
	"memory":             {"value"},
	"percent":            {"value"},
	"gauge":              {"value"},
	"derive":             {"value"},
	"counter":            {"value"},
	"df_complex":         {"value"},
	"virt_cpu_total":     {"value"},
	"virt_vcpu":          {"value"},
	"perf":               {"value"},
	"pending_operations": {"value"},
}

// DataSetNames returns one name per value of a series of type typ. Names sent
// with the value list win; then the built-in table; then "value" for scalars
// and the value index otherwise.
func DataSetNames(typ string, dsnames []string, n int) []string {
	if len(dsnames) == n {
		return dsnames
	}
	if names, ok := dataSets[typ]; ok && len(names) == n {
		return names
	}
	if n == 1 {
		return []string{"value"}
	}
	out := make([]string, n)
	for i := range out {
		out[i] = strconv.Itoa(i)
	}
	return out
}

// dash joins the non-empty parts with "-".
func dash(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "-")
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
