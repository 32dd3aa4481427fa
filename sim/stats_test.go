package sim

import "testing"

func TestNewStatisticsAllocatesPerTaskSlices(t *testing.T) {
	s := NewStatistics(3)
	if len(s.OverflowedPacketRatioHistory) != 4 || len(s.UploadedPacketHistory) != 4 {
		t.Fatalf("aggregate slots: want nTask+1=4, got %d/%d", len(s.OverflowedPacketRatioHistory), len(s.UploadedPacketHistory))
	}
	if len(s.CounterSizeHistory) != 3 || len(s.CPMaxHistory) != 3 || len(s.CPMaxBitsHistory) != 3 {
		t.Fatalf("per-task slices should have length nTask=3")
	}
}

func TestRecordSubtickAppendsHistory(t *testing.T) {
	s := NewStatistics(2)
	uploaded := []float64{1, 2, 3}
	overflowed := []float64{0.1, 0.2, 0.3}
	uploadedRatio := []float64{10, 20, 30}
	s.recordSubtick(55.5, uploaded, overflowed, uploadedRatio, 1.5)

	if got := s.BandwidthUtilizationHistory[0]; got != 55.5 {
		t.Errorf("BandwidthUtilizationHistory[0] = %v, want 55.5", got)
	}
	if got := s.CPNotProcessedPacketHistory[0]; got != 1.5 {
		t.Errorf("CPNotProcessedPacketHistory[0] = %v, want 1.5", got)
	}
	for t2 := 0; t2 <= 2; t2++ {
		if s.UploadedPacketHistory[t2][0] != uploaded[t2] {
			t.Errorf("UploadedPacketHistory[%d][0] = %v, want %v", t2, s.UploadedPacketHistory[t2][0], uploaded[t2])
		}
	}
}

func TestRecordTickAppendsPerTaskHistory(t *testing.T) {
	s := NewStatistics(2)
	s.recordTick([]int{8, 16}, []int64{100, 200}, []int{4, 8})
	s.recordTick([]int{9, 15}, []int64{150, 50}, []int{5, 6})

	if s.CounterSizeHistory[0][0] != 8 || s.CounterSizeHistory[0][1] != 9 {
		t.Errorf("CounterSizeHistory[0] = %v, want [8 9]", s.CounterSizeHistory[0])
	}
	if s.CPMaxHistory[1][1] != 50 {
		t.Errorf("CPMaxHistory[1][1] = %d, want 50", s.CPMaxHistory[1][1])
	}
	if s.CPMaxBitsHistory[1][0] != 8 {
		t.Errorf("CPMaxBitsHistory[1][0] = %d, want 8", s.CPMaxBitsHistory[1][0])
	}
}

func TestLastHelpersReturnZeroOnEmpty(t *testing.T) {
	if lastOrZero(nil) != 0 {
		t.Error("lastOrZero(nil) should be 0")
	}
	if lastIntOrZero(nil) != 0 {
		t.Error("lastIntOrZero(nil) should be 0")
	}
	if lastInt64OrZero(nil) != 0 {
		t.Error("lastInt64OrZero(nil) should be 0")
	}
	if lastOrZero([]float64{1, 2, 3}) != 3 {
		t.Error("lastOrZero should return the last element")
	}
}
