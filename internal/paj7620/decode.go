package paj7620

import (
	"context"
	"time"
)

// Result はデコード結果。Holdは手を離すまで次の読み出しを控える時間
type Result struct {
	Gesture Gesture
	Hold    time.Duration
}

// GestureCheck は1回のデコードの途中状態。
//
// 横方向フラグを読んだ直後はPending()がtrueになり、SettleDelay()だけ待ってから
// Resolve()でフラグを読み直す。前後方向のジェスチャーは横方向のフラグを
// 一瞬立てることがあるため、再読み出しで前後フラグが出ればそちらを採用する。
type GestureCheck struct {
	dev       *Device
	candidate Gesture
	settle    time.Duration
	pending   bool
	result    Result
}

// Pending は再読み出しが必要かどうかを返す
func (c *GestureCheck) Pending() bool { return c.pending }

// Candidate は最初の読み出しで得た横方向ジェスチャーを返す
func (c *GestureCheck) Candidate() Gesture { return c.candidate }

// SettleDelay はResolveを呼ぶ前に待つべき時間を返す
func (c *GestureCheck) SettleDelay() time.Duration { return c.settle }

// Result は確定した結果を返す。Pendingの間はGestureNoneになる
func (c *GestureCheck) Result() Result {
	if c.pending {
		return Result{}
	}
	return c.result
}

// Resolve はフラグレジスタを読み直して判定を確定する。
// 読み出しに失敗した場合は最初の候補をエラーとともに返す
func (c *GestureCheck) Resolve() (Result, error) {
	if !c.pending {
		return c.result, nil
	}
	c.dev.mu.Lock()
	defer c.dev.mu.Unlock()
	return c.resolveLocked()
}

func (c *GestureCheck) resolveLocked() (Result, error) {
	c.pending = false
	c.result = Result{Gesture: c.candidate}

	v, err := c.dev.readByte(RegGesture0)
	if err != nil {
		return c.result, err
	}
	if g, ok := depthGesture(Flag(v)); ok {
		c.result = Result{Gesture: g, Hold: c.dev.exitDelay}
	}
	return c.result, nil
}

// BeginGestureCheck はフラグレジスタを読んで分類する。
// 呼び出し側はResolveまでの間に他のデコードを挟まないこと
func (d *Device) BeginGestureCheck() (*GestureCheck, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.beginLocked()
}

// ReadGesture は最新のジェスチャーを読み出す。フラグは読み出しでクリアされる。
//
// 横方向のジェスチャーではエントリー待ちの後に再読み出しを行い、前後方向の
// ジェスチャーではイグジット待ちを行うため、最大でその合計時間ブロックする
func (d *Device) ReadGesture(ctx context.Context) (Gesture, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	check, err := d.beginLocked()
	if err != nil {
		return check.result.Gesture, err
	}

	if check.pending {
		if err := d.sleep(ctx, check.settle); err != nil {
			return check.candidate, err
		}
		if _, err := check.resolveLocked(); err != nil {
			return check.result.Gesture, err
		}
	}

	if err := d.sleep(ctx, check.result.Hold); err != nil {
		return check.result.Gesture, err
	}
	return check.result.Gesture, nil
}

func (d *Device) beginLocked() (*GestureCheck, error) {
	check := &GestureCheck{dev: d}

	if err := d.readyBank0(); err != nil {
		return check, err
	}

	v, err := d.readByte(RegGesture0)
	if err != nil {
		// フラグの状態は不明。次のポーリングで読み直す
		return check, err
	}

	flag := Flag(v)
	if g, ok := lateralGesture(flag); ok {
		check.candidate = g
		check.settle = d.entryDelay
		check.pending = true
		return check, nil
	}
	if g, ok := depthGesture(flag); ok {
		check.result = Result{Gesture: g, Hold: d.exitDelay}
		return check, nil
	}

	switch flag {
	case FlagClockwise:
		check.result = Result{Gesture: GestureClockwise}
		return check, nil
	case FlagAnticlockwise:
		check.result = Result{Gesture: GestureAnticlockwise}
		return check, nil
	}

	// 既知のパターン以外(0や複数ビット)はウェーブを確認する
	w, err := d.readByte(RegGesture1)
	if err != nil {
		return check, err
	}
	if Flag(w) == FlagWave {
		check.result = Result{Gesture: GestureWave}
	}
	return check, nil
}
