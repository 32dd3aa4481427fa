package sim

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Statistics accumulates the per-subtick and per-tick history streams
// exposed to collaborators (§6): uploaded/overflowed packet counts per task
// plus an aggregate slot, bandwidth utilization, the control-plane
// backpressure ratio, and counter-size/cp_max/cp_max_bits history per task.
type Statistics struct {
	nTask int

	BandwidthUtilizationHistory     []float64
	OverflowedPacketRatioHistory    [][]float64 // [task][subtick statistics sample], task index nTask is the aggregate
	UploadedPacketHistory           [][]float64
	UploadedPacketRatioHistory      [][]float64
	CPNotProcessedPacketHistory     []float64

	CounterSizeHistory [][]int   // [task][tick]
	CPMaxHistory       [][]int64 // [task][tick]
	CPMaxBitsHistory   [][]int   // [task][tick]
}

// NewStatistics allocates the per-task history slices for nTask tasks (plus
// one aggregate slot where the reference keeps it).
func NewStatistics(nTask int) *Statistics {
	s := &Statistics{
		nTask:                        nTask,
		OverflowedPacketRatioHistory: make([][]float64, nTask+1),
		UploadedPacketHistory:        make([][]float64, nTask+1),
		UploadedPacketRatioHistory:   make([][]float64, nTask+1),
		CounterSizeHistory:           make([][]int, nTask),
		CPMaxHistory:                 make([][]int64, nTask),
		CPMaxBitsHistory:             make([][]int, nTask),
	}
	return s
}

func (s *Statistics) recordSubtick(bandwidthPct float64, uploaded, overflowedRatio, uploadedRatio []float64, cpNotProcessedPct float64) {
	s.BandwidthUtilizationHistory = append(s.BandwidthUtilizationHistory, bandwidthPct)
	for t := 0; t <= s.nTask; t++ {
		s.UploadedPacketHistory[t] = append(s.UploadedPacketHistory[t], uploaded[t])
		s.OverflowedPacketRatioHistory[t] = append(s.OverflowedPacketRatioHistory[t], overflowedRatio[t])
		s.UploadedPacketRatioHistory[t] = append(s.UploadedPacketRatioHistory[t], uploadedRatio[t])
	}
	s.CPNotProcessedPacketHistory = append(s.CPNotProcessedPacketHistory, cpNotProcessedPct)
}

func (s *Statistics) recordTick(counterSizes []int, cpMax []int64, cpMaxBits []int) {
	for t := 0; t < s.nTask; t++ {
		s.CounterSizeHistory[t] = append(s.CounterSizeHistory[t], counterSizes[t])
		s.CPMaxHistory[t] = append(s.CPMaxHistory[t], cpMax[t])
		s.CPMaxBitsHistory[t] = append(s.CPMaxBitsHistory[t], cpMaxBits[t])
	}
	logrus.Debugf("tick boundary: counter_sizes=%v cp_max=%v cp_max_bits=%v", counterSizes, cpMax, cpMaxBits)
}

// Print displays the final tick's aggregate figures, mirroring the teacher's
// end-of-run Metrics.Print.
func (s *Statistics) Print() {
	fmt.Println("=== Cerberus Statistics ===")
	if n := len(s.BandwidthUtilizationHistory); n > 0 {
		fmt.Printf("Bandwidth utilization (last subtick) : %.2f%%\n", s.BandwidthUtilizationHistory[n-1])
	}
	if n := len(s.CPNotProcessedPacketHistory); n > 0 {
		fmt.Printf("CP not-processed ratio (last subtick): %.2f%%\n", s.CPNotProcessedPacketHistory[n-1])
	}
	fmt.Printf("Aggregate uploaded packets (last subtick): %.2f\n", lastOrZero(s.UploadedPacketHistory[s.nTask]))
	fmt.Printf("Aggregate overflow ratio (last subtick)   : %.2f%%\n", lastOrZero(s.OverflowedPacketRatioHistory[s.nTask]))
	for t := 0; t < s.nTask; t++ {
		fmt.Printf("task %-2d counter_size=%-3d cp_max=%-8d cp_max_bits=%d\n",
			t, lastIntOrZero(s.CounterSizeHistory[t]), lastInt64OrZero(s.CPMaxHistory[t]), lastIntOrZero(s.CPMaxBitsHistory[t]))
	}
}

func lastOrZero(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	return xs[len(xs)-1]
}

func lastIntOrZero(xs []int) int {
	if len(xs) == 0 {
		return 0
	}
	return xs[len(xs)-1]
}

func lastInt64OrZero(xs []int64) int64 {
	if len(xs) == 0 {
		return 0
	}
	return xs[len(xs)-1]
}
