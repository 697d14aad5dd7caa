package features

// MotionFilter はカーソル座標(x, y)を滑らかにします
type MotionFilter struct {
	smoothingFactor float64 // 0.0-1.0の範囲。1.0に近いほど滑らかになりますが、遅延が大きくなります
	lastX           float64
	lastY           float64
	warmUpCount     int
	currentCount    int
	initialized     bool
}

// 新しいモーションフィルターを作成します
func NewMotionFilter(smoothingFactor float64, warmUpCount int) *MotionFilter {
	return &MotionFilter{
		smoothingFactor: smoothingFactor,
		warmUpCount:     warmUpCount,
	}
}

// 生の座標にsmoothingを適用します
func (mf *MotionFilter) Filter(x, y int) (int, int) {
	// 初回またはウォームアップ中はそのまま返す
	if !mf.initialized || mf.currentCount < mf.warmUpCount {
		mf.currentCount++
		mf.lastX = float64(x)
		mf.lastY = float64(y)
		mf.initialized = true
		return x, y
	}

	// smoothingの適用
	f := mf.smoothingFactor
	newX := float64(x)*(1.0-f) + mf.lastX*f
	newY := float64(y)*(1.0-f) + mf.lastY*f

	// 新しい値を保存
	mf.lastX = newX
	mf.lastY = newY

	return int(newX + 0.5), int(newY + 0.5)
}

// フィルターの状態をリセットします
func (mf *MotionFilter) Reset() {
	mf.lastX = 0
	mf.lastY = 0
	mf.currentCount = 0
	mf.initialized = false
}

// SetSmoothingFactor は平滑化係数を変更します
func (mf *MotionFilter) SetSmoothingFactor(f float64) {
	mf.smoothingFactor = f
}
