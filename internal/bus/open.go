package bus

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"periph.io/x/conn/v3/physic"
)

// ドライバ名
const (
	DriverPeriph = "periph"
	DriverDevfs  = "devfs"
	DriverSim    = "sim"
)

// DefaultSpeed はperiphドライバで設定するバス速度
const DefaultSpeed = 400 * physic.KiloHertz

// Open はドライバ名に応じたバスを開く。
// simの場合はaddressで応答するシミュレータを返す
func Open(driver, name string, address byte) (Bus, error) {
	switch driver {
	case DriverPeriph, "":
		return OpenPeriph(name, DefaultSpeed)
	case DriverDevfs:
		if name == "" {
			name = "/dev/i2c-1"
		}
		return OpenDevfs(name)
	case DriverSim:
		return NewSim(address), nil
	default:
		return nil, fmt.Errorf("unknown bus driver %q", driver)
	}
}

// Info は検出したI2Cバスの情報
type Info struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// ScanBuses は /dev 以下のi2c-devノードを列挙する
func ScanBuses() ([]Info, error) {
	return scanBuses("/dev")
}

func scanBuses(dir string) ([]Info, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var buses []Info
	for _, entry := range entries {
		// i2c-で始まらない場合はスキップ
		if !strings.HasPrefix(entry.Name(), "i2c-") {
			continue
		}
		buses = append(buses, Info{Name: entry.Name(), Path: filepath.Join(dir, entry.Name())})
	}
	sort.Slice(buses, func(i, j int) bool { return buses[i].Name < buses[j].Name })
	return buses, nil
}
