package retry

import (
	"fmt"
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestBreaker(threshold int) (*Breaker, *fakeClock) {
	clk := &fakeClock{t: time.Unix(1700000000, 0)}
	b := &Breaker{Threshold: threshold, Cooldown: time.Minute}
	b.now = clk.now
	return b, clk
}

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	b, _ := newTestBreaker(3)
	fail := fmt.Errorf("broker unreachable")

	for i := 0; i < 3; i++ {
		if !b.Allow() {
			t.Fatalf("call %d rejected while closed", i)
		}
		b.Record(fail)
	}
	if b.State() != Open || b.Failures() != 3 {
		t.Fatalf("state=%s failures=%d", b.State(), b.Failures())
	}
	if b.Allow() {
		t.Error("open breaker should reject")
	}
}

func TestBreaker_SuccessResetsCount(t *testing.T) {
	b, _ := newTestBreaker(2)
	b.Record(fmt.Errorf("x"))
	b.Record(nil)
	b.Record(fmt.Errorf("x"))
	if b.State() != Closed {
		t.Errorf("state = %s, want closed", b.State())
	}
}

func TestBreaker_HalfOpenProbe(t *testing.T) {
	b, clk := newTestBreaker(1)
	var transitions []string
	b.OnChange = func(from, to BreakerState) {
		transitions = append(transitions, from.String()+"->"+to.String())
	}

	b.Record(fmt.Errorf("down"))
	clk.advance(2 * time.Minute)

	if !b.Allow() {
		t.Fatal("probe should be admitted after cooldown")
	}
	if b.Allow() {
		t.Error("only one probe at a time")
	}
	b.Record(nil)

	if b.State() != Closed {
		t.Errorf("state = %s, want closed", b.State())
	}
	want := []string{"closed->open", "open->half-open", "half-open->closed"}
	if fmt.Sprint(transitions) != fmt.Sprint(want) {
		t.Errorf("transitions = %v, want %v", transitions, want)
	}
}

func TestBreaker_FailedProbeReopens(t *testing.T) {
	b, clk := newTestBreaker(1)
	b.Record(fmt.Errorf("down"))
	clk.advance(2 * time.Minute)

	b.Allow()
	b.Record(fmt.Errorf("still down"))
	if b.State() != Open {
		t.Errorf("state = %s, want open", b.State())
	}
	if b.Allow() {
		t.Error("reopened breaker should wait a full cooldown")
	}
}

func TestBreakerState_String(t *testing.T) {
	if BreakerState(42).String() != "unknown" {
		t.Error("unexpected name for invalid state")
	}
}
