package e2e

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestValidateProfile1ConfigTable(t *testing.T) {
	base := Profile1Config{
		CounterOffsetBits: 8,
		CRCOffsetBits:     0,
		DataID:            0x123,
		Mode:              DataIDModeBoth,
		DataLengthBits:    64,
	}

	cases := []struct {
		name   string
		modify func(*Profile1Config)
		want   StatusCode
	}{
		{"valid BOTH", func(c *Profile1Config) {}, StatusOK},
		{"counter offset not multiple of 4", func(c *Profile1Config) { c.CounterOffsetBits = 7 }, StatusInputErrWrong},
		{"crc offset not multiple of 8", func(c *Profile1Config) { c.CRCOffsetBits = 4 }, StatusInputErrWrong},
		{"NIBBLE mode with bad nibble offset", func(c *Profile1Config) {
			c.Mode = DataIDModeNibble
			c.DataIDNibbleOffsetBits = 3
		}, StatusInputErrWrong},
		{"NIBBLE mode with valid nibble offset", func(c *Profile1Config) {
			c.Mode = DataIDModeNibble
			c.DataIDNibbleOffsetBits = 12
		}, StatusOK},
		{"BOTH mode with nonzero nibble offset", func(c *Profile1Config) { c.DataIDNibbleOffsetBits = 4 }, StatusInputErrWrong},
		{"unrecognized mode", func(c *Profile1Config) { c.Mode = DataIDMode(99) }, StatusInputErrWrong},
		{"data length not multiple of 8", func(c *Profile1Config) { c.DataLengthBits = 17 }, StatusInputErrWrong},
		{"data length too small", func(c *Profile1Config) { c.DataLengthBits = 8 }, StatusInputErrWrong},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base
			tc.modify(&cfg)
			assert.Equal(t, tc.want, validateProfile1Config(&cfg))
		})
	}
}

func TestProfile1ProtectLiteralBoth(t *testing.T) {
	cfg := &Profile1Config{
		CounterOffsetBits: 8,
		CRCOffsetBits:     0,
		DataID:            0x123,
		Mode:              DataIDModeBoth,
		DataLengthBits:    64,
	}
	state := &Profile1ProtectState{}
	require.Equal(t, StatusOK, Profile1ProtectInit(state))

	buf := make([]byte, 8)
	require.Equal(t, StatusOK, Profile1Protect(cfg, state, buf))
	assert.Equal(t, []byte{0xCC, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}, buf)
	assert.Equal(t, uint8(1), state.Counter)

	buf2 := make([]byte, 8)
	require.Equal(t, StatusOK, Profile1Protect(cfg, state, buf2))
	assert.Equal(t, []byte{0x91, 0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}, buf2)
	assert.Equal(t, uint8(2), state.Counter)
}

func TestProfile1ProtectLiteralNibble(t *testing.T) {
	cfg := &Profile1Config{
		CounterOffsetBits:      8,
		CRCOffsetBits:          0,
		DataID:                 0x123,
		Mode:                   DataIDModeNibble,
		DataIDNibbleOffsetBits: 12,
		DataLengthBits:         64,
	}
	state := &Profile1ProtectState{}
	require.Equal(t, StatusOK, Profile1ProtectInit(state))

	buf := make([]byte, 8)
	require.Equal(t, StatusOK, Profile1Protect(cfg, state, buf))
	assert.Equal(t, []byte{0x2A, 0x10, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}, buf)

	buf2 := make([]byte, 8)
	require.Equal(t, StatusOK, Profile1Protect(cfg, state, buf2))
	assert.Equal(t, []byte{0x77, 0x11, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}, buf2)
}

func TestProfile1NullInputs(t *testing.T) {
	cfg := &Profile1Config{CounterOffsetBits: 8, CRCOffsetBits: 0, Mode: DataIDModeBoth, DataLengthBits: 64}
	assert.Equal(t, StatusInputErrNull, Profile1Protect(cfg, nil, make([]byte, 8)))
	assert.Equal(t, StatusInputErrNull, Profile1Protect(cfg, &Profile1ProtectState{}, nil))
	assert.Equal(t, StatusInputErrNull, Profile1ProtectInit(nil))
	assert.Equal(t, StatusInputErrNull, Profile1CheckInit(nil))
	assert.Equal(t, StatusInputErrNull, Profile1Check(cfg, nil, make([]byte, 8)))
	assert.Equal(t, StatusInputErrNull, Profile1Check(cfg, &Profile1CheckState{}, nil))
}

func profile1TestConfig() *Profile1Config {
	return &Profile1Config{
		CounterOffsetBits:      8,
		CRCOffsetBits:          0,
		DataID:                 0x123,
		Mode:                   DataIDModeBoth,
		DataLengthBits:         64,
		MaxDeltaCounterInit:    5,
		MaxNoNewOrRepeatedData: 3,
		SyncCounterInit:        2,
	}
}

// TestProfile1RoundTrip is the spec's "Profile 1 round-trip" invariant:
// after Protect, the first Check yields INITIAL and the immediate next
// reception yields OK.
func TestProfile1RoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		cfg := profile1TestConfig()
		protectState := &Profile1ProtectState{}
		require.Equal(t, StatusOK, Profile1ProtectInit(protectState))
		checkState := &Profile1CheckState{}
		require.Equal(t, StatusOK, Profile1CheckInit(checkState))

		seed := rapid.SliceOfN(rapid.Byte(), 8, 8).Draw(t, "payload")
		buf := append([]byte(nil), seed...)

		require.Equal(t, StatusOK, Profile1Protect(cfg, protectState, buf))
		checkState.NewDataAvailable = true
		require.Equal(t, StatusOK, Profile1Check(cfg, checkState, buf))
		if checkState.Status != Profile1StatusInitial {
			t.Fatalf("first reception: want INITIAL, got %v", checkState.Status)
		}

		buf2 := append([]byte(nil), seed...)
		require.Equal(t, StatusOK, Profile1Protect(cfg, protectState, buf2))
		checkState.NewDataAvailable = true
		require.Equal(t, StatusOK, Profile1Check(cfg, checkState, buf2))
		if checkState.Status != Profile1StatusOK {
			t.Fatalf("second reception: want OK, got %v", checkState.Status)
		}
	})
}

// TestProfile1CounterWrap is the spec's "Profile 1 counter wrap" invariant:
// after 15 consecutive Protect calls, the counter returns to its starting
// value, and 15 itself never appears on the wire.
func TestProfile1CounterWrap(t *testing.T) {
	cfg := profile1TestConfig()
	state := &Profile1ProtectState{}
	require.Equal(t, StatusOK, Profile1ProtectInit(state))

	for i := 0; i < 15; i++ {
		buf := make([]byte, 8)
		require.Equal(t, StatusOK, Profile1Protect(cfg, state, buf))
		wire := readCounterNibble(cfg, buf)
		assert.NotEqual(t, uint8(15), wire)
	}
	assert.Equal(t, uint8(0), state.Counter)
}

// TestProfile1NoNewDataCap is the spec's "Profile 1 no-new-data cap"
// invariant.
func TestProfile1NoNewDataCap(t *testing.T) {
	cfg := profile1TestConfig()
	state := &Profile1CheckState{}
	require.Equal(t, StatusOK, Profile1CheckInit(state))
	state.NewDataAvailable = false

	for i := 1; i <= 14; i++ {
		require.Equal(t, StatusOK, Profile1Check(cfg, state, make([]byte, 8)))
		assert.Equal(t, uint8(i), state.NoNewOrRepeatedDataCounter)
		assert.Equal(t, Profile1StatusNoNewData, state.Status)
	}

	for i := 0; i < 5; i++ {
		require.Equal(t, StatusOK, Profile1Check(cfg, state, make([]byte, 8)))
		assert.Equal(t, uint8(14), state.NoNewOrRepeatedDataCounter)
	}
}

func TestProfile1MapStatusToSM(t *testing.T) {
	assert.Equal(t, CheckError, Profile1MapStatusToSM(StatusInputErrWrong, Profile1StatusOK, false))

	current := map[Profile1Status]CheckStatus{
		Profile1StatusOK:            CheckOK,
		Profile1StatusOKSomeLost:    CheckOK,
		Profile1StatusInitial:       CheckOK,
		Profile1StatusWrongCRC:      CheckError,
		Profile1StatusRepeated:      CheckRepeated,
		Profile1StatusNoNewData:     CheckNoNewData,
		Profile1StatusWrongSequence: CheckWrongSequence,
		Profile1StatusSync:          CheckWrongSequence,
	}
	for status, want := range current {
		assert.Equal(t, want, Profile1MapStatusToSM(StatusOK, status, false), "status=%v", status)
	}

	legacy := map[Profile1Status]CheckStatus{
		Profile1StatusSync:    CheckOK,
		Profile1StatusInitial: CheckWrongSequence,
	}
	for status, want := range legacy {
		assert.Equal(t, want, Profile1MapStatusToSM(StatusOK, status, true), "legacy status=%v", status)
	}
}
