//go:build opencv

package main

import (
	"github.com/LdDl/tracktor-go/mot"
	"github.com/LdDl/tracktor-go/mot/cvalign"
)

func newAligner(cfg mot.Config) mot.Aligner {
	return cvalign.New(cfg)
}
