package session

import (
	"fmt"
	goruntime "runtime"
	"strings"
)

const (
	bannerWidth = 64
	copyright   = "Copyright (c) the bstest authors"
	noWarranty  = "This software comes with NO warranty!"
)

// Environment describes the host the harness runs on.
func Environment() string {
	return fmt.Sprintf("Environment: %s %s/%s", goruntime.Version(), goruntime.GOOS, goruntime.GOARCH)
}

// BannerText returns the welcome block written at session start.
func BannerText(version, environment string) string {
	rule := "+" + strings.Repeat("-", bannerWidth) + "+\n"
	line := func(s string) string {
		return fmt.Sprintf("+ %-*s+\n", bannerWidth-1, s)
	}

	var b strings.Builder
	b.WriteString(rule)
	b.WriteString(line("bstest - Version: " + version))
	b.WriteString(line(copyright))
	b.WriteString(line(environment))
	b.WriteString(line(noWarranty))
	b.WriteString(rule)
	return b.String()
}
