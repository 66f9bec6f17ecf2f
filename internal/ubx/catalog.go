package ubx

// Class/ID pairs for the fixed message catalog this tool emits.
const (
	classMON = 0x0A
	idMONVER = 0x04

	classCFG    = 0x06
	idCFGGNSS   = 0x3E
	idCFGNAV5   = 0x24
	idCFGRATE   = 0x08
	idCFGSBAS   = 0x16
	idCFGNMEA   = 0x17
	idCFGMSG    = 0x01
	idCFGCFGSav = 0x09
)

// ClassMON and IDMONVER are exported so callers outside this package (the
// Optimization Controller's UBX listener) can recognize a MON-VER reply
// without re-deriving the class/id pair.
const (
	ClassMON = classMON
	IDMONVER = idMONVER
)

// GNSS identifiers as used in CFG-GNSS configuration blocks.
const (
	gnssIDGPS     = 0
	gnssIDSBAS    = 1
	gnssIDGalileo = 2
	gnssIDBeiDou  = 3
	gnssIDQZSS    = 5
	gnssIDGLONASS = 6
)

func le16(v uint16) []byte { return []byte{byte(v), byte(v >> 8)} }
func le32(v uint32) []byte { return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)} }

// PollMonVer builds the MON-VER poll request (empty payload).
func PollMonVer() []byte {
	return Encode(classMON, idMONVER, nil)
}

func gnssBlock(gnssID byte, resTrkCh, maxTrkCh byte, enable bool, sigCfgMask uint32) []byte {
	var flags uint32 = sigCfgMask
	if enable {
		flags |= 0x00000001
	}
	block := []byte{gnssID, resTrkCh, maxTrkCh, 0x00}
	return append(block, le32(flags)...)
}

// CFGGNSSSeries7Marine builds a CFG-GNSS payload enabling only GPS and SBAS,
// the constellation combination a series-7 receiver can run concurrently.
func CFGGNSSSeries7Marine() []byte {
	payload := []byte{0x00, 0x10, 0x10, 0x02} // msgVer, numTrkChHw=16, numTrkChUse=16, numConfigBlocks=2
	payload = append(payload, gnssBlock(gnssIDGPS, 8, 16, true, 0x01000000)...)
	payload = append(payload, gnssBlock(gnssIDSBAS, 1, 3, true, 0x01000000)...)
	return Encode(classCFG, idCFGGNSS, payload)
}

// CFGGNSSSeries8Marine builds a CFG-GNSS payload enabling GPS, SBAS, Galileo,
// and GLONASS concurrently, available from series-8 onward.
func CFGGNSSSeries8Marine() []byte {
	payload := []byte{0x00, 0x20, 0x20, 0x04} // numConfigBlocks=4
	payload = append(payload, gnssBlock(gnssIDGPS, 8, 16, true, 0x01000000)...)
	payload = append(payload, gnssBlock(gnssIDSBAS, 1, 3, true, 0x01000000)...)
	payload = append(payload, gnssBlock(gnssIDGalileo, 4, 8, true, 0x01000000)...)
	payload = append(payload, gnssBlock(gnssIDGLONASS, 8, 14, true, 0x01000000)...)
	return Encode(classCFG, idCFGGNSS, payload)
}

// CFGNAV5Sea builds a CFG-NAV5 payload tuned for sea-surface navigation:
// dynamic model "Sea", automatic 2D/3D fix mode, 5 degree minimum elevation,
// and static-hold disabled (a vessel never truly stops).
func CFGNAV5Sea() []byte {
	const (
		dynModelSea  = 0x05
		fixModeAuto  = 0x03
		minElevDeg   = 0x05
		maskDyn      = 0x0001
		maskFixMode  = 0x0004
		maskMinElev  = 0x0002
		maskStaticHd = 0x0040
	)
	mask := maskDyn | maskFixMode | maskMinElev | maskStaticHd
	payload := make([]byte, 36)
	copy(payload[0:2], le16(uint16(mask)))
	payload[2] = dynModelSea
	payload[3] = fixModeAuto
	// fixedAlt(4), fixedAltVar(4) left zero
	payload[12] = minElevDeg
	// drLimit(1) at [13] left zero
	// pDop,tDop,pAcc,tAcc default zero (not masked)
	payload[22] = 0x00 // staticHoldThresh = 0
	return Encode(classCFG, idCFGNAV5, payload)
}

// CFGRate1Hz builds a CFG-RATE payload for 1 Hz navigation referenced to GPS
// time: measRate=1000ms, navRate=1, timeRef=GPS(1).
func CFGRate1Hz() []byte {
	payload := make([]byte, 0, 6)
	payload = append(payload, le16(1000)...) // measRate ms
	payload = append(payload, le16(1)...)    // navRate cycles
	payload = append(payload, le16(1)...)    // timeRef = GPS
	return Encode(classCFG, idCFGRATE, payload)
}

// CFGSBASEnabled builds a CFG-SBAS payload enabling range, differential
// correction, and integrity usage, auto-scanning for up to 3 SBAS satellites.
func CFGSBASEnabled() []byte {
	const (
		modeEnabled    = 0x01
		usageRange     = 0x01
		usageDiffCorr  = 0x02
		usageIntegrity = 0x04
		maxSBAS        = 0x03
	)
	payload := []byte{
		modeEnabled,
		usageRange | usageDiffCorr | usageIntegrity,
		maxSBAS,
		0x00, // scanmode2
	}
	payload = append(payload, le32(0)...) // scanmode1: 0 = auto-scan all PRNs
	return Encode(classCFG, idCFGSBAS, payload)
}

// CFGNMEAExtended builds a 12-byte v0 CFG-NMEA payload that enables extended
// satellite numbering so SVs above PRN 32 (SBAS, GLONASS, Galileo) show up in
// NMEA sentences.
func CFGNMEAExtended() []byte {
	const flagExtendedSVNumbering = 0x02
	payload := []byte{
		0x00,                    // filter
		0x41,                    // nmeaVersion 4.1
		0x00,                    // numSV (0 = unlimited/all)
		flagExtendedSVNumbering, // flags
	}
	payload = append(payload, le32(0x1F)...) // gnssToFilter: none filtered out
	payload = append(payload, []byte{
		0x00, // svNumbering: strict
		0x00, // mainTalkerId: auto (GN when mixed)
		0x01, // gsvTalkerId: use GPS talker for GSV
		0x00, // version reserved
	}...)
	return Encode(classCFG, idCFGNMEA, payload)
}

const (
	nmeaClassStandard = 0xF0
	nmeaIDGGA         = 0x00
	nmeaIDGLL         = 0x01
	nmeaIDGSA         = 0x02
	nmeaIDGSV         = 0x03
	nmeaIDRMC         = 0x04
	nmeaIDVTG         = 0x05
)

func cfgMsg(msgClass, msgID, rate byte) []byte {
	return Encode(classCFG, idCFGMSG, []byte{msgClass, msgID, rate})
}

// CFGMsgStandardSuite returns CFG-MSG frames enabling GGA, RMC, VTG, GSA,
// and GSV at rate 1, and disabling GLL.
func CFGMsgStandardSuite() [][]byte {
	return [][]byte{
		cfgMsg(nmeaClassStandard, nmeaIDGGA, 1),
		cfgMsg(nmeaClassStandard, nmeaIDRMC, 1),
		cfgMsg(nmeaClassStandard, nmeaIDVTG, 1),
		cfgMsg(nmeaClassStandard, nmeaIDGSA, 1),
		cfgMsg(nmeaClassStandard, nmeaIDGSV, 1),
		cfgMsg(nmeaClassStandard, nmeaIDGLL, 0),
	}
}

// CFGMsgEnableGSV returns a single CFG-MSG frame enabling GSV at rate 1,
// used during the lightweight conditional UBX bring-up on connect.
func CFGMsgEnableGSV() []byte {
	return cfgMsg(nmeaClassStandard, nmeaIDGSV, 1)
}

// CFGCFGSaveAll builds a CFG-CFG frame that persists the current
// configuration to battery-backed RAM, flash, EEPROM, and SPI flash.
func CFGCFGSaveAll() []byte {
	const (
		saveMask   = 0x00001F1F
		deviceMask = 0x17 // BBR | Flash | EEPROM | SPI flash
	)
	payload := make([]byte, 0, 13)
	payload = append(payload, le32(0)...)          // clearMask
	payload = append(payload, le32(saveMask)...)   // saveMask
	payload = append(payload, le32(0)...)          // loadMask
	payload = append(payload, deviceMask)
	return Encode(classCFG, idCFGCFGSav, payload)
}
