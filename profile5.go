package e2e

// Profile5Config is the immutable per-channel configuration for Profile 5.
type Profile5Config struct {
	OffsetBits      uint
	DataLengthBits  uint
	DataID          uint16
	MaxDeltaCounter uint8
}

// Profile5ProtectState is the sender-side state for a Profile 5 channel.
type Profile5ProtectState struct {
	Counter uint8
}

// Profile5CheckState is the receiver-side state for a Profile 5 channel.
type Profile5CheckState struct {
	Status  Profile5Status
	Counter uint8
}

func validateProfile5ConfigShape(cfg *Profile5Config) StatusCode {
	if cfg.OffsetBits%8 != 0 {
		return StatusInputErrWrong
	}
	if cfg.DataLengthBits < 3*8 || cfg.DataLengthBits > 4096*8 {
		return StatusInputErrWrong
	}
	if cfg.OffsetBits > cfg.DataLengthBits-3*8 {
		return StatusInputErrWrong
	}
	return StatusOK
}

func validateProfile5Config(cfg *Profile5Config, providedLengthBytes int) StatusCode {
	if status := validateProfile5ConfigShape(cfg); status != StatusOK {
		return status
	}
	if uint(providedLengthBytes) != cfg.DataLengthBits/8 {
		return StatusInputErrWrong
	}
	return StatusOK
}

// profile5MessageCRC computes the CRC-16 (CCITT-FALSE) over everything in
// data except the 2-byte CRC field itself, followed by the Data-ID, LSB
// then MSB.
func profile5MessageCRC(cfg *Profile5Config, data []byte) uint16 {
	offset := cfg.OffsetBits / 8
	length := cfg.DataLengthBits / 8
	firstAfterCRC := offset + 2

	var rem uint64
	if offset > 0 {
		rem = CRC16CCITTFALSE.Compute(data[:offset], 0, true)
		rem = CRC16CCITTFALSE.Compute(data[firstAfterCRC:length], rem, false)
	} else {
		rem = CRC16CCITTFALSE.Compute(data[firstAfterCRC:length], 0, true)
	}

	lsb := byte(cfg.DataID & 0xFF)
	msb := byte(cfg.DataID >> 8)
	rem = CRC16CCITTFALSE.Compute([]byte{lsb}, rem, false)
	rem = CRC16CCITTFALSE.Compute([]byte{msb}, rem, false)

	return uint16(rem)
}

// Profile5ProtectInit resets protect-side state to its initial value
// (counter 0).
func Profile5ProtectInit(state *Profile5ProtectState) StatusCode {
	if state == nil {
		return StatusInputErrNull
	}
	state.Counter = 0
	return StatusOK
}

// Profile5Protect writes the counter and CRC-16 into data, and advances
// state.Counter (mod 256).
func Profile5Protect(cfg *Profile5Config, state *Profile5ProtectState, data []byte) StatusCode {
	if cfg == nil || state == nil || data == nil {
		return StatusInputErrNull
	}
	if status := validateProfile5Config(cfg, len(data)); status != StatusOK {
		return status
	}

	offset := cfg.OffsetBits / 8
	counterOffset := offset + 2
	data[counterOffset] = state.Counter

	crc := profile5MessageCRC(cfg, data)
	data[offset] = byte(crc)
	data[offset+1] = byte(crc >> 8)

	state.Counter++ // wraps mod 256

	return StatusOK
}

// Profile5CheckInit resets check-side state. Per the original
// E2E_P05CheckInit, the counter starts at 0xFF (so the very first received
// counter of 0 yields a delta of 1, i.e. OK) and Status starts at ERROR.
func Profile5CheckInit(state *Profile5CheckState) StatusCode {
	if state == nil {
		return StatusInputErrNull
	}
	state.Counter = 0xFF
	state.Status = Profile5StatusError
	return StatusOK
}

// Profile5Check recovers the counter and CRC-16 from data, updates state,
// and sets state.Status to the fine-grained per-cycle result. data == nil
// means no new data is available this cycle. It returns StatusOK unless the
// call itself was malformed - CRC mismatches and counter anomalies are
// reported through state.Status, not the return value.
func Profile5Check(cfg *Profile5Config, state *Profile5CheckState, data []byte) StatusCode {
	if cfg == nil || state == nil {
		return StatusInputErrNull
	}
	if status := validateProfile5ConfigShape(cfg); status != StatusOK {
		return status
	}

	if data == nil {
		state.Status = Profile5StatusNoNewData
		return StatusOK
	}
	if uint(len(data)) != cfg.DataLengthBits/8 {
		return StatusInputErrWrong
	}

	offset := cfg.OffsetBits / 8
	counterOffset := offset + 2
	receivedCounter := data[counterOffset]
	receivedCRC := uint16(data[offset]) | uint16(data[offset+1])<<8
	computedCRC := profile5MessageCRC(cfg, data)

	if receivedCRC != computedCRC {
		state.Status = Profile5StatusError
		return StatusOK
	}

	delta := receivedCounter - state.Counter // wraps mod 256
	switch {
	case delta == 0:
		state.Status = Profile5StatusRepeated
	case delta <= cfg.MaxDeltaCounter:
		if delta == 1 {
			state.Status = Profile5StatusOK
		} else {
			state.Status = Profile5StatusOKSomeLost
		}
	default:
		state.Status = Profile5StatusWrongSequence
	}
	state.Counter = receivedCounter

	return StatusOK
}

// Profile5MapStatusToSM collapses a Profile 5 Check result into the
// profile-independent CheckStatus the aggregation SM consumes.
func Profile5MapStatusToSM(checkReturn StatusCode, status Profile5Status) CheckStatus {
	if checkReturn != StatusOK {
		return CheckError
	}

	switch status {
	case Profile5StatusOK, Profile5StatusOKSomeLost:
		return CheckOK
	case Profile5StatusError:
		return CheckError
	case Profile5StatusRepeated:
		return CheckRepeated
	case Profile5StatusNoNewData:
		return CheckNoNewData
	case Profile5StatusWrongSequence:
		return CheckWrongSequence
	default:
		return CheckError
	}
}
