package e2e

// DataIDMode selects how a channel's 16-bit Data-ID is mixed into the
// Profile 1 CRC.
type DataIDMode uint8

const (
	DataIDModeBoth DataIDMode = iota
	DataIDModeAlt
	DataIDModeLow
	DataIDModeNibble
)

// Profile1Config is the immutable per-channel configuration for Profile 1.
// Offsets are in bits, as laid out on the wire.
type Profile1Config struct {
	CounterOffsetBits      uint
	CRCOffsetBits          uint
	DataID                 uint16
	DataIDNibbleOffsetBits uint
	Mode                   DataIDMode
	DataLengthBits         uint
	MaxDeltaCounterInit    uint8
	MaxNoNewOrRepeatedData uint8
	SyncCounterInit        uint8
}

// Profile1ProtectState is the sender-side state for a Profile 1 channel.
type Profile1ProtectState struct {
	Counter uint8
}

// Profile1CheckState is the receiver-side state for a Profile 1 channel.
type Profile1CheckState struct {
	LastValidCounter           uint8
	MaxDeltaCounter            uint8
	WaitForFirstData           bool
	NewDataAvailable           bool
	LostData                   uint8
	Status                     Profile1Status
	SyncCounter                uint8
	NoNewOrRepeatedDataCounter uint8
}

func validateProfile1Config(cfg *Profile1Config) StatusCode {
	if cfg.CounterOffsetBits%4 != 0 {
		return StatusInputErrWrong
	}
	if cfg.CRCOffsetBits%8 != 0 {
		return StatusInputErrWrong
	}

	switch cfg.Mode {
	case DataIDModeBoth, DataIDModeLow, DataIDModeAlt:
		if cfg.DataIDNibbleOffsetBits != 0 {
			return StatusInputErrWrong
		}
	case DataIDModeNibble:
		if cfg.DataIDNibbleOffsetBits%4 != 0 {
			return StatusInputErrWrong
		}
	default:
		return StatusInputErrWrong
	}

	// DataLength must be a multiple of 8 and big enough to hold at least
	// the CRC byte plus the counter nibble.
	if cfg.DataLengthBits%8 != 0 || cfg.DataLengthBits < 12 {
		return StatusInputErrWrong
	}

	return StatusOK
}

func readCounterNibble(cfg *Profile1Config, data []byte) uint8 {
	byteIdx := cfg.CounterOffsetBits / 8
	if cfg.CounterOffsetBits%8 == 0 {
		return data[byteIdx] & 0x0F
	}
	return (data[byteIdx] >> 4) & 0x0F
}

func writeCounterNibble(cfg *Profile1Config, data []byte, counter uint8) {
	byteIdx := cfg.CounterOffsetBits / 8
	if cfg.CounterOffsetBits%8 == 0 {
		data[byteIdx] = (data[byteIdx] & 0xF0) | (counter & 0x0F)
	} else {
		data[byteIdx] = (data[byteIdx] & 0x0F) | ((counter << 4) & 0xF0)
	}
}

func writeDataIDNibble(cfg *Profile1Config, data []byte) {
	if cfg.Mode != DataIDModeNibble {
		return
	}
	byteIdx := cfg.DataIDNibbleOffsetBits / 8
	nibble := byte(cfg.DataID>>8) & 0x0F
	if cfg.DataIDNibbleOffsetBits%8 == 0 {
		data[byteIdx] = (data[byteIdx] & 0xF0) | nibble
	} else {
		data[byteIdx] = (data[byteIdx] & 0x0F) | (nibble << 4)
	}
}

func readDataIDNibble(cfg *Profile1Config, data []byte) uint8 {
	byteIdx := cfg.DataIDNibbleOffsetBits / 8
	if cfg.DataIDNibbleOffsetBits%8 == 0 {
		return data[byteIdx] & 0x0F
	}
	return (data[byteIdx] >> 4) & 0x0F
}

// profile1DataIDSeed mixes the Data-ID into the CRC-8 remainder per the
// configured mode. The first feed is deliberately issued as a continuation
// (isFirstCall=false) of CRC8.Init rather than a fresh first call: since
// CRC8's Init and FinalXor are both 0xFF, that nets a raw starting
// remainder of 0x00. This mirrors the original Crc_CalculateCRC8 call
// sequence in E2E_P01_getDataIdCRC, which does the same thing for the same
// reason - the Data-ID mix is not itself a "check value" computation, so it
// does not want CRC8's canonical non-zero Init.
func profile1DataIDSeed(cfg *Profile1Config, data []byte) uint64 {
	lsb := byte(cfg.DataID & 0xFF)
	msb := byte(cfg.DataID >> 8)

	switch cfg.Mode {
	case DataIDModeBoth:
		c := CRC8.Compute([]byte{lsb}, CRC8.Init, false)
		return CRC8.Compute([]byte{msb}, c, false)
	case DataIDModeLow:
		return CRC8.Compute([]byte{lsb}, CRC8.Init, false)
	case DataIDModeAlt:
		counter := readCounterNibble(cfg, data)
		b := msb
		if counter%2 == 0 {
			b = lsb
		}
		return CRC8.Compute([]byte{b}, CRC8.Init, false)
	case DataIDModeNibble:
		c := CRC8.Compute([]byte{lsb}, CRC8.Init, false)
		return CRC8.Compute([]byte{0}, c, false)
	default:
		return CRC8.Init
	}
}

// profile1MessageCRC computes the CRC-8 over the Data-ID mix plus every
// buffer byte except the CRC byte itself, then XORs the result with 0xFF
// once more.
func profile1MessageCRC(cfg *Profile1Config, data []byte) uint8 {
	seed := profile1DataIDSeed(cfg, data)
	crcByteIndex := cfg.CRCOffsetBits / 8
	dataLength := cfg.DataLengthBits / 8

	rem := seed
	if crcByteIndex >= 1 {
		rem = CRC8.Compute(data[:crcByteIndex], rem, false)
	}
	if crcByteIndex < dataLength-1 {
		rem = CRC8.Compute(data[crcByteIndex+1:dataLength], rem, false)
	}
	return byte(rem) ^ 0xFF
}

// Profile1ProtectInit resets protect-side state to its initial value
// (counter 0).
func Profile1ProtectInit(state *Profile1ProtectState) StatusCode {
	if state == nil {
		return StatusInputErrNull
	}
	state.Counter = 0
	return StatusOK
}

// Profile1Protect writes the counter nibble, optional Data-ID nibble and
// CRC byte into data, and advances state.Counter.
func Profile1Protect(cfg *Profile1Config, state *Profile1ProtectState, data []byte) StatusCode {
	if cfg == nil || state == nil || data == nil {
		return StatusInputErrNull
	}
	if status := validateProfile1Config(cfg); status != StatusOK {
		return status
	}

	writeCounterNibble(cfg, data, state.Counter)
	writeDataIDNibble(cfg, data)

	crc := profile1MessageCRC(cfg, data)
	data[cfg.CRCOffsetBits/8] = crc

	state.Counter++
	if state.Counter >= 15 {
		state.Counter = 0
	}

	return StatusOK
}

// Profile1CheckInit resets check-side state: counter tracking starts fresh
// and the first reception is treated specially (WaitForFirstData).
func Profile1CheckInit(state *Profile1CheckState) StatusCode {
	if state == nil {
		return StatusInputErrNull
	}
	*state = Profile1CheckState{
		WaitForFirstData: true,
		NewDataAvailable: true,
		Status:           Profile1StatusNoNewData,
	}
	return StatusOK
}

func profile1ProcessCounter(cfg *Profile1Config, state *Profile1CheckState, received uint8) Profile1Status {
	delta := uint8((int(received) - int(state.LastValidCounter) + 15) % 15)

	switch {
	case delta == 0:
		if state.NoNewOrRepeatedDataCounter < 14 {
			state.NoNewOrRepeatedDataCounter++
		}
		return Profile1StatusRepeated

	case delta > state.MaxDeltaCounter:
		state.NoNewOrRepeatedDataCounter = 0
		state.SyncCounter = cfg.SyncCounterInit
		if state.SyncCounter > 0 {
			state.MaxDeltaCounter = cfg.MaxDeltaCounterInit
			state.LastValidCounter = received
		}
		return Profile1StatusWrongSequence

	default:
		state.MaxDeltaCounter = cfg.MaxDeltaCounterInit
		state.LastValidCounter = received
		state.LostData = delta - 1

		if state.NoNewOrRepeatedDataCounter > cfg.MaxNoNewOrRepeatedData {
			state.SyncCounter = cfg.SyncCounterInit
			state.NoNewOrRepeatedDataCounter = 0
			return Profile1StatusSync
		}
		if state.SyncCounter > 0 {
			state.SyncCounter--
			state.NoNewOrRepeatedDataCounter = 0
			return Profile1StatusSync
		}

		state.NoNewOrRepeatedDataCounter = 0
		if delta == 1 {
			return Profile1StatusOK
		}
		return Profile1StatusOKSomeLost
	}
}

// Profile1Check recovers the counter and CRC from data, updates state, and
// sets state.Status to the fine-grained per-cycle result. It returns
// StatusOK unless the call itself was malformed - CRC mismatches, counter
// jumps and repetitions are reported through state.Status, not the return
// value.
func Profile1Check(cfg *Profile1Config, state *Profile1CheckState, data []byte) StatusCode {
	if cfg == nil || state == nil || data == nil {
		return StatusInputErrNull
	}
	if status := validateProfile1Config(cfg); status != StatusOK {
		return status
	}

	if state.MaxDeltaCounter < 14 {
		state.MaxDeltaCounter++
	}

	if !state.NewDataAvailable {
		if state.NoNewOrRepeatedDataCounter < 14 {
			state.NoNewOrRepeatedDataCounter++
		}
		state.Status = Profile1StatusNoNewData
		return StatusOK
	}

	received := readCounterNibble(cfg, data)
	if received >= 15 {
		return StatusInputErrWrong
	}

	crcOK := data[cfg.CRCOffsetBits/8] == profile1MessageCRC(cfg, data)
	dataIDOK := true
	if cfg.Mode == DataIDModeNibble {
		expected := byte(cfg.DataID>>8) & 0x0F
		dataIDOK = readDataIDNibble(cfg, data) == expected
	}
	if !crcOK || !dataIDOK {
		state.Status = Profile1StatusWrongCRC
		return StatusOK
	}

	if state.WaitForFirstData {
		state.WaitForFirstData = false
		state.MaxDeltaCounter = cfg.MaxDeltaCounterInit
		state.LastValidCounter = received
		state.Status = Profile1StatusInitial
		return StatusOK
	}

	state.Status = profile1ProcessCounter(cfg, state, received)
	return StatusOK
}

// Profile1MapStatusToSM collapses a Profile 1 Check result into the
// profile-independent CheckStatus the aggregation SM consumes. legacy
// selects the pre-AUTOSAR-R4.2 mapping table, in which SYNC maps to OK and
// INITIAL maps to WRONGSEQUENCE (the inverse of current behaviour).
func Profile1MapStatusToSM(checkReturn StatusCode, status Profile1Status, legacy bool) CheckStatus {
	if checkReturn != StatusOK {
		return CheckError
	}

	if legacy {
		switch status {
		case Profile1StatusOK, Profile1StatusOKSomeLost, Profile1StatusSync:
			return CheckOK
		case Profile1StatusWrongCRC:
			return CheckError
		case Profile1StatusRepeated:
			return CheckRepeated
		case Profile1StatusNoNewData:
			return CheckNoNewData
		case Profile1StatusWrongSequence, Profile1StatusInitial:
			return CheckWrongSequence
		default:
			return CheckError
		}
	}

	switch status {
	case Profile1StatusOK, Profile1StatusOKSomeLost, Profile1StatusInitial:
		return CheckOK
	case Profile1StatusWrongCRC:
		return CheckError
	case Profile1StatusRepeated:
		return CheckRepeated
	case Profile1StatusNoNewData:
		return CheckNoNewData
	case Profile1StatusWrongSequence, Profile1StatusSync:
		return CheckWrongSequence
	default:
		return CheckError
	}
}
