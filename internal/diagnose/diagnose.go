// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package diagnose turns setup failures from the tuner, filesystem and
// descrambler boundaries into a short operator-facing diagnostic.
package diagnose

import (
	"errors"
	"fmt"
	"sync"
	"syscall"
)

// Domain names the collaborator boundary an error crossed.
type Domain int

const (
	DomainUnknown Domain = iota
	DomainDevice         // opening the tuner device
	DomainTune           // applying channel / LNB parameters
	DomainSource         // opening an input file
	DomainSink           // opening the output
	DomainDecode         // descrambler stage
)

func (d Domain) String() string {
	switch d {
	case DomainDevice:
		return "device"
	case DomainTune:
		return "tune"
	case DomainSource:
		return "source"
	case DomainSink:
		return "sink"
	case DomainDecode:
		return "decode"
	default:
		return "unknown"
	}
}

// Error tags an underlying failure with the boundary it came from.
type Error struct {
	Domain Domain
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Domain, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Wrap tags err with domain. A nil err stays nil.
func Wrap(domain Domain, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Domain: domain, Err: err}
}

// Diagnostic is what the operator sees for a failed run.
type Diagnostic struct {
	Message    string
	Actionable bool // specific guidance rather than a generic message
	Fatal      bool
}

// Rule maps a (domain, errno) pair to a fixed message.
type Rule struct {
	Domain  Domain
	Code    syscall.Errno
	Message string
}

var (
	rulesMu sync.RWMutex
	rules   []Rule
)

// Register appends rules to the classification table. Earlier rules win.
func Register(rs ...Rule) {
	rulesMu.Lock()
	defer rulesMu.Unlock()
	rules = append(rules, rs...)
}

// Rules returns a copy of the current table.
func Rules() []Rule {
	rulesMu.RLock()
	defer rulesMu.RUnlock()
	out := make([]Rule, len(rules))
	copy(out, rules)
	return out
}

// Generic message prefixes per domain, used when no rule matches.
var genericPrefix = map[Domain]string{
	DomainSource: "Failed to open source file",
	DomainSink:   "Failed to open output file",
}

// Classify maps err to a Diagnostic. Same input, same output.
func Classify(err error) Diagnostic {
	if err == nil {
		return Diagnostic{}
	}

	domain := DomainUnknown
	var tagged *Error
	if errors.As(err, &tagged) {
		domain = tagged.Domain
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		if msg, ok := lookup(domain, errno); ok {
			return Diagnostic{Message: msg, Actionable: true, Fatal: true}
		}
		if prefix, ok := genericPrefix[domain]; ok {
			return Diagnostic{Message: fmt.Sprintf("%s: %v", prefix, errno), Fatal: true}
		}
		return Diagnostic{Message: fmt.Sprintf("Unexpected OS error: %v", errno), Fatal: true}
	}

	if prefix, ok := genericPrefix[domain]; ok {
		return Diagnostic{Message: fmt.Sprintf("%s: %v", prefix, unwrapTag(err)), Fatal: true}
	}
	return Diagnostic{Message: fmt.Sprintf("Unexpected error: %v", unwrapTag(err)), Fatal: true}
}

func lookup(domain Domain, code syscall.Errno) (string, bool) {
	rulesMu.RLock()
	defer rulesMu.RUnlock()
	for _, r := range rules {
		if r.Domain == domain && r.Code == code {
			return r.Message, true
		}
	}
	return "", false
}

// unwrapTag drops the "<domain>: " prefix so generic messages show the cause.
func unwrapTag(err error) error {
	var tagged *Error
	if errors.As(err, &tagged) && tagged.Err != nil {
		return tagged.Err
	}
	return err
}
