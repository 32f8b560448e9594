//go:build !opencv

package main

import "github.com/LdDl/tracktor-go/mot"

func newAligner(cfg mot.Config) mot.Aligner {
	return mot.NewECCAligner(cfg)
}
