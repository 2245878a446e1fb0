package emulator

import (
	"math"
	"math/rand"
	"sync"
)

type motionState struct {
	a, v, d [3]float64
}

// motion integrates a synthetic acceleration signal the way the firmware
// integrates the MPU6050: noise floor gate, stillness detection with a hold
// time that zeroes velocity, then velocity and displacement integration.
type motion struct {
	mu        sync.Mutex
	t         float64
	phase     [3]float64
	amplitude [3]float64
	period    [3]float64
	still     [3]int
	state     motionState
}

func newMotion() *motion {
	m := &motion{}
	for i := range m.phase {
		m.phase[i] = rand.Float64() * 2 * math.Pi
		m.amplitude[i] = 2 + rand.Float64()*6 // 2-8 m/s^2
		m.period[i] = 1 + rand.Float64()*3    // 1-4 s
	}
	return m
}

func (m *motion) reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.t = 0
	m.still = [3]int{}
	m.state = motionState{}
}

func (m *motion) step(dt, noiseFloor float64) motionState {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.t += dt
	for i := 0; i < 3; i++ {
		// Bursts of movement separated by quiet spells.
		envelope := math.Max(0, math.Sin(2*math.Pi*m.t/(m.period[i]*4)+m.phase[i]))
		a := m.amplitude[i]*envelope*math.Sin(2*math.Pi*m.t/m.period[i]+m.phase[i]) +
			(rand.Float64()-0.5)*0.4

		if math.Abs(a) < noiseFloor {
			a = 0
		}

		if math.Abs(a) < stationaryLimit {
			m.still[i]++
			if m.still[i] >= holdCycles {
				m.state.v[i] = 0
			}
		} else {
			m.still[i] = 0
			m.state.v[i] += a * dt
			m.state.d[i] += m.state.v[i] * dt
		}
		m.state.a[i] = a
	}
	return m.state
}
