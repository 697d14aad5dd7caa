package api

import (
	"math/rand/v2"
	"time"

	"github.com/char5742/paj7620-gestures/internal/bus"
	"github.com/char5742/paj7620-gestures/internal/paj7620"
)

// simInterval はシミュレータがジェスチャーを発生させる間隔
const simInterval = 1500 * time.Millisecond

// simulateGestures はシミュレータのフラグレジスタにランダムなジェスチャーを積む。
// 前後方向のジェスチャーは横方向フラグの後に前後フラグが続く形で再現する
func simulateGestures(sim *bus.Sim, stop <-chan struct{}) {
	ticker := time.NewTicker(simInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			flags, wave := simulatedFlags(rand.IntN(11))
			sim.QueueFlags(flags...)
			if wave {
				sim.QueueWave(byte(paj7620.FlagWave))
			}
		}
	}
}

// simulatedFlags はnに応じたフラグ列を返す
func simulatedFlags(n int) ([]byte, bool) {
	switch n {
	case 0:
		return []byte{byte(paj7620.FlagRight)}, false
	case 1:
		return []byte{byte(paj7620.FlagLeft)}, false
	case 2:
		return []byte{byte(paj7620.FlagUp)}, false
	case 3:
		return []byte{byte(paj7620.FlagDown)}, false
	case 4:
		return []byte{byte(paj7620.FlagForward)}, false
	case 5:
		return []byte{byte(paj7620.FlagBackward)}, false
	case 6:
		return []byte{byte(paj7620.FlagClockwise)}, false
	case 7:
		return []byte{byte(paj7620.FlagAnticlockwise)}, false
	case 8:
		return []byte{byte(paj7620.FlagUp), byte(paj7620.FlagForward)}, false
	case 9:
		return []byte{byte(paj7620.FlagLeft), byte(paj7620.FlagBackward)}, false
	default:
		return []byte{0x00}, true
	}
}
