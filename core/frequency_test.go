package core

import "testing"

func TestFrequencyInitDisabled(t *testing.T) {
	r := newTestRig(t, nil)

	st, ok := FrequencyState()
	if !ok {
		t.Fatal("scheduler missing after init")
	}
	if st.Enabled || st.Mode != ModeRandomized || st.Frequency != 500 || st.Period != 200000 {
		t.Errorf("unexpected initial state %+v", st)
	}
	if len(r.freqTimer.starts) != 0 {
		t.Error("timer must not be started by init")
	}
	if !r.nvic.unmasked[IRQFrequency] {
		t.Error("frequency line not unmasked")
	}
}

func TestFrequencyEnableArmsTimer(t *testing.T) {
	r := newTestRig(t, nil)

	FrequencyEnable()
	if !r.freqTimer.intEnabled || r.freqTimer.lastStart() != 200000 {
		t.Errorf("timer not armed for the initial period: %+v", r.freqTimer)
	}

	FrequencyDisable()
	if r.freqTimer.intEnabled {
		t.Error("disable should mask the timer interrupt")
	}
	if st, _ := FrequencyState(); st.Enabled {
		t.Error("scheduler still enabled")
	}
}

func TestFrequencyFixedModeHoldsFrequency(t *testing.T) {
	r := newTestRig(t, &seqSource{vals: []uint64{5, 77, 901}})

	FrequencySetMode(ModeFixed)
	FrequencySet(440)
	FrequencyEnable()

	for i := 0; i < 5; i++ {
		HandleFrequencyTimer()
		freq, _, _ := ToneState()
		if freq != 440 || r.wave.freq != 440 {
			t.Fatalf("fire %d: tone at %d (wave %d), want 440", i, freq, r.wave.freq)
		}
	}
	if len(r.freqTimer.starts) != 6 {
		t.Errorf("expected enable + 5 re-arms, got %d starts", len(r.freqTimer.starts))
	}
}

func TestFrequencyRandomizedDraws(t *testing.T) {
	r := newTestRig(t, &seqSource{vals: []uint64{0, 1099, 1100, 550}})

	FrequencyEnable()

	want := []uint32{300, 1399, 300, 850}
	for i, w := range want {
		HandleFrequencyTimer()
		if freq, _, _ := ToneState(); freq != w {
			t.Errorf("fire %d: tone at %d, want %d", i, freq, w)
		}
		if cur, _ := CurrentFrequency(); cur != w {
			t.Errorf("fire %d: scheduler at %d, want %d", i, cur, w)
		}
		if r.freqTimer.lastStart() != 200000 {
			t.Errorf("fire %d: re-armed for %d", i, r.freqTimer.lastStart())
		}
	}
	if r.freqTimer.resets != len(want) {
		t.Errorf("expected %d acknowledged events, got %d", len(want), r.freqTimer.resets)
	}
}

func TestFrequencyDisableStopsPushes(t *testing.T) {
	r := newTestRig(t, &seqSource{vals: []uint64{340, 400, 600, 800}})

	FrequencyEnable()
	HandleFrequencyTimer()
	f1, _, _ := ToneState()
	if f1 != 640 {
		t.Fatalf("first fire: got %d, want 640", f1)
	}

	FrequencyDisable()
	starts := len(r.freqTimer.starts)
	for i := 0; i < 4; i++ {
		HandleFrequencyTimer()
		freq, _, _ := ToneState()
		if freq != f1 && freq != CurrentTiming().DefaultFrequency {
			t.Fatalf("disabled fire %d pushed a new frequency %d", i, freq)
		}
	}

	if cur, _ := CurrentFrequency(); cur != f1 {
		t.Errorf("scheduler frequency changed while disabled: %d", cur)
	}
	if len(r.freqTimer.starts) != starts {
		t.Error("disabled scheduler re-armed its timer")
	}
}

func TestFrequencyFallbackFrequency(t *testing.T) {
	r := newTestRig(t, nil)

	tm := DefaultTiming()
	tm.DefaultFrequency = 610
	ApplyTiming(tm)

	TonePlay(1000)
	HandleFrequencyTimer()
	if r.wave.freq != 610 {
		t.Errorf("disabled fire should play the fallback, got %d", r.wave.freq)
	}
}

func TestFrequencyTogglePeriod(t *testing.T) {
	newTestRig(t, &seqSource{vals: []uint64{10, 20}})

	FrequencyTogglePeriod()
	st, _ := FrequencyState()
	if st.Period != 25010 {
		t.Errorf("randomized period = %d, want 25010", st.Period)
	}

	FrequencySetMode(ModeFixed)
	FrequencyTogglePeriod()
	st, _ = FrequencyState()
	if st.Period != 25010 {
		t.Errorf("fixed mode must keep the period, got %d", st.Period)
	}
}

func TestFrequencyWithoutEntropyKeepsFrequency(t *testing.T) {
	newTestRig(t, nil)

	FrequencyEnable()
	HandleFrequencyTimer()
	FrequencyTogglePeriod()

	st, _ := FrequencyState()
	if st.Frequency != 500 || st.Period != 200000 {
		t.Errorf("no entropy: state changed to %+v", st)
	}
}

func TestFrequencyBeforeInitIsNoop(t *testing.T) {
	resetCore(t)

	FrequencyEnable()
	FrequencyDisable()
	FrequencySetMode(ModeFixed)
	FrequencyTogglePeriod()
	FrequencySet(440)
	HandleFrequencyTimer()

	if _, ok := CurrentFrequency(); ok {
		t.Error("scheduler should not exist before init")
	}
}
