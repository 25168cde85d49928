// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPresetsValid(t *testing.T) {
	require := require.New(t)

	require.NoError(Default().Valid())
	require.NoError(Fast().Valid())
	require.Equal(200*time.Millisecond, Default().MinNotificationInterval)
	require.Equal(60*time.Second, Default().MaxNotificationInterval)
	require.Equal(200*time.Millisecond, Default().FinalizeWait)
}

func TestValidRejectsBadParameters(t *testing.T) {
	require := require.New(t)

	p := Default()
	p.MinNotificationInterval = 0
	require.Error(p.Valid())

	p = Default()
	p.MaxNotificationInterval = -time.Second
	require.Error(p.Valid())

	p = Default()
	p.MinNotificationInterval = 2 * p.MaxNotificationInterval
	require.Error(p.Valid())

	p = Default()
	p.FinalizeWait = 0
	require.Error(p.Valid())
}

func TestBackoffDoublesAndClamps(t *testing.T) {
	require := require.New(t)

	p := Parameters{
		MinNotificationInterval: 200 * time.Millisecond,
		MaxNotificationInterval: 60 * time.Second,
		FinalizeWait:            200 * time.Millisecond,
	}

	want := []time.Duration{
		400 * time.Millisecond,
		800 * time.Millisecond,
		1600 * time.Millisecond,
		3200 * time.Millisecond,
	}
	cur := p.MinNotificationInterval
	for _, next := range want {
		cur = p.NextNotificationInterval(cur)
		require.Equal(next, cur)
	}

	// Keep doubling; the sequence pins to the maximum.
	for i := 0; i < 20; i++ {
		cur = p.NextNotificationInterval(cur)
	}
	require.Equal(p.MaxNotificationInterval, cur)
	require.Equal(p.MaxNotificationInterval, p.NextNotificationInterval(cur))
}
