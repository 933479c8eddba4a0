// Package metrics defines the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "splitledger"

var (
	// SplitsTotal counts split computations by strategy and outcome ("ok" or a constraint name).
	SplitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "splits_total",
		Help:      "Split computations by strategy and outcome.",
	}, []string{"strategy", "outcome"})

	// InviteRedemptions counts invite code redemptions by outcome.
	InviteRedemptions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "invite_redemptions_total",
		Help:      "Invite code redemptions by outcome (joined, already_member, invalid_code).",
	}, []string{"outcome"})

	// MembershipsCreated counts new membership rows by how they were created.
	MembershipsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "memberships_created_total",
		Help:      "Memberships created by source (founder, added, invite).",
	}, []string{"source"})

	// RPCDuration observes handler latency per procedure and Connect code.
	RPCDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "rpc_duration_seconds",
		Help:      "RPC handler latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"procedure", "code"})
)

// Outcome labels shared by callers.
const (
	OutcomeOK            = "ok"
	OutcomeJoined        = "joined"
	OutcomeAlreadyMember = "already_member"
	OutcomeInvalidCode   = "invalid_code"

	SourceFounder = "founder"
	SourceAdded   = "added"
	SourceInvite  = "invite"
)
