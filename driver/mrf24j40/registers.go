package mrf24j40

// ShortReg is the address of a register in the 6-bit short
// address space.
type ShortReg uint8

// ReadClears reports whether reading the register clears it.
func (r ShortReg) ReadClears() bool {
	return r == regINTSTAT
}

// LongReg is the address of a register or FIFO position in
// the 10-bit long address space.
type LongReg uint16

// Short address registers (datasheet table 2-1).
const (
	regRXMCR    ShortReg = 0x00
	regPANIDL   ShortReg = 0x01
	regPANIDH   ShortReg = 0x02
	regSADRL    ShortReg = 0x03
	regSADRH    ShortReg = 0x04
	regEADR0    ShortReg = 0x05
	regRXFLUSH  ShortReg = 0x0d
	regACKTMOUT ShortReg = 0x12
	regPACON2   ShortReg = 0x18
	regTXNCON   ShortReg = 0x1b
	regTXSTAT   ShortReg = 0x24
	regSOFTRST  ShortReg = 0x2a
	regTXSTBL   ShortReg = 0x2e
	regINTSTAT  ShortReg = 0x31
	regINTCON   ShortReg = 0x32
	regRFCTL    ShortReg = 0x36
	regBBREG1   ShortReg = 0x39
	regBBREG2   ShortReg = 0x3a
	regBBREG6   ShortReg = 0x3e
	regCCAEDTH  ShortReg = 0x3f
)

// Long address registers and FIFOs (datasheet table 2-2).
const (
	fifoTXNormal LongReg = 0x000
	regRFCON0    LongReg = 0x200
	regRFCON1    LongReg = 0x201
	regRFCON2    LongReg = 0x202
	regRFCON3    LongReg = 0x203
	regRFCON6    LongReg = 0x206
	regRFCON7    LongReg = 0x207
	regRFCON8    LongReg = 0x208
	regRFSTATE   LongReg = 0x20f
	regSLPCON1   LongReg = 0x220
	fifoRX       LongReg = 0x300
)

const (
	// MaxShortReg is the highest short register address.
	MaxShortReg ShortReg = 0x3f
	// MaxLongReg is the highest long register address.
	MaxLongReg LongReg = 0x3ff

	// txFIFOSize is the size of the normal transmit FIFO.
	txFIFOSize = 0x80
	// rxFIFOSize is the size of the receive FIFO.
	rxFIFOSize = 0x90
)

// Register bits.
const (
	// SOFTRST.
	rstMAC = 0b1 << 0
	rstBB  = 0b1 << 1
	rstPWR = 0b1 << 2

	// RXFLUSH.
	rxFlush  = 0b1 << 0
	dataOnly = 0b1 << 2

	// ACKTMOUT: drop acks with pending bit, MAC ack wait duration 0x39.
	drpACK = 0b1 << 7
	mawd   = 0x39

	// PACON2: FIFO enable, transmitter on time 6 symbols.
	fifoEN = 0b1 << 7
	txONTS = 0b0110 << 2

	// TXNCON.
	txnTrig   = 0b1 << 0
	txnACKReq = 0b1 << 2

	// TXSTAT.
	txnStat  = 0b1 << 0
	ccaFail  = 0b1 << 5
	txnRetry = 6

	// TXSTBL: RF stabilization 9, minimum SIFS 5.
	rfSTBL = 0b1001 << 4
	msIFS  = 0b0101

	// INTCON, a set bit disables the source.
	txnIE    = 0b1 << 0
	txg2IE   = 0b1 << 2
	secIE    = 0b1 << 4
	hsymtmIE = 0b1 << 5
	wakeIE   = 0b1 << 6
	slpIE    = 0b1 << 7

	// RFCTL.
	rfRST = 0b1 << 2

	// BBREG1.
	rxDecInv = 0b1 << 2

	// BBREG2: CCA mode 1, energy above threshold.
	ccaMode1 = 0b10 << 6

	// BBREG6: calculate RSSI for each received packet.
	rssiMode2 = 0b1 << 6

	// CCAEDTH: recommended energy detection threshold.
	ccaEDTH = 0x60

	// RFCON1: VCO optimize control.
	vcoOpt = 0x01

	// RFCON2: PLL enable.
	pllEN = 0b1 << 7

	// RFCON3: 0 dB large and small scale attenuation.
	txPower0dB = 0x00

	// RFCON6: TX filter, 20 MHz clock recovery.
	txFil    = 0b1 << 7
	recovery = 0b1 << 4

	// RFCON7: 100 kHz internal sleep clock.
	slpClk100kHz = 0b10 << 6

	// RFCON8: VCO control.
	rfVCO = 0b1 << 4

	// SLPCON1: CLKOUT disabled, sleep clock divisor 1.
	clkOutDis  = 0b1 << 5
	slpClkDiv0 = 0b1 << 0

	// RFSTATE.
	rfStateMask = 0b111 << 5
	rfStateRX   = 0b101 << 5
)
