package paj7620

// Address はPAJ7620U2の7bit I2Cアドレス
const Address = 0x73

// バンク選択
const (
	RegBankSelect = 0xEF
	bank0Value    = 0x00
	bank1Value    = 0x01
)

// Bank0 のレジスタ
const (
	RegPartIDLow   = 0x00
	RegPartIDHigh  = 0x01
	RegCursorXLow  = 0x3B
	RegCursorXHigh = 0x3C
	RegCursorYLow  = 0x3D
	RegCursorYHigh = 0x3E
	RegGesture0    = 0x43 // 割り込みフラグ #0 (読み出しでクリア)
	RegGesture1    = 0x44 // 割り込みフラグ #1 (ウェーブ、カーソル検出)
	RegWaveCount   = 0xB7
)

// Bank1 のレジスタ
const (
	RegOperationEnable = 0x72
)

// Part ID (データシート 5.16 Chip/Version ID)
const (
	PartIDLow  = 0x20
	PartIDHigh = 0x76
)

const (
	operationEnable  = 0x01
	operationDisable = 0x00
)

// カーソルモードでの物体検出フラグ (RegGesture1)
const (
	cursorHasObject = 0x04
)

const (
	waveCountMask  = 0x0F
	cursorHighMask = 0x0F
)
