package liveness

import (
	"context"
	"testing"
	"time"

	"github.com/dep2p/go-registry/config"
	"github.com/dep2p/go-registry/pkg/types"
)

func newTestService() *Service {
	return NewService(config.DefaultLivenessConfig())
}

func newTestPid() types.Pid {
	return types.NewPid(types.NewNodeID())
}

func TestService_RegisterAndIsAlive(t *testing.T) {
	s := newTestService()
	pid := newTestPid()

	if s.IsAlive(pid) {
		t.Fatal("unregistered pid should not be alive")
	}

	s.Register(pid)
	if !s.IsAlive(pid) {
		t.Fatal("registered pid should be alive")
	}
}

func TestService_MonitorGivesDistinctRefsAndChannels(t *testing.T) {
	s := newTestService()
	pid := newTestPid()
	s.Register(pid)

	ref1, ch1, err := s.Monitor(pid)
	if err != nil {
		t.Fatalf("Monitor() failed: %v", err)
	}

	ref2, ch2, err := s.Monitor(pid)
	if err != nil {
		t.Fatalf("second Monitor() failed: %v", err)
	}

	if ref1 == ref2 {
		t.Error("Monitor() should return a distinct ref per call, even for the same pid")
	}

	s.Kill(pid, types.DownNormal, nil)

	for _, ch := range []<-chan types.DownEvent{ch1, ch2} {
		select {
		case evt := <-ch:
			if !evt.Pid.Equal(pid) {
				t.Errorf("DownEvent pid = %v, want %v", evt.Pid, pid)
			}
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for DownEvent on one of the monitor channels")
		}
	}
}

func TestService_MonitorUnknownPid(t *testing.T) {
	s := newTestService()
	pid := newTestPid()

	if _, _, err := s.Monitor(pid); err != types.ErrProcessNotFound {
		t.Errorf("Monitor() on unknown pid = %v, want ErrProcessNotFound", err)
	}
}

func TestService_KillDeliversDown(t *testing.T) {
	s := newTestService()
	pid := newTestPid()
	s.Register(pid)

	_, ch, err := s.Monitor(pid)
	if err != nil {
		t.Fatalf("Monitor() failed: %v", err)
	}

	s.Kill(pid, types.DownNormal, nil)

	select {
	case evt := <-ch:
		if !evt.Pid.Equal(pid) {
			t.Errorf("DownEvent pid = %v, want %v", evt.Pid, pid)
		}
		if evt.Reason != types.DownNormal {
			t.Errorf("DownEvent reason = %v, want DownNormal", evt.Reason)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for DownEvent")
	}

	if s.IsAlive(pid) {
		t.Error("killed pid should not be alive")
	}
}

func TestService_KillWithoutMonitorsNoPanic(t *testing.T) {
	s := newTestService()
	pid := newTestPid()
	s.Register(pid)

	s.Kill(pid, types.DownNormal, nil)

	if s.IsAlive(pid) {
		t.Error("killed pid should not be alive")
	}
}

func TestService_KillTwiceIsNoop(t *testing.T) {
	s := newTestService()
	pid := newTestPid()
	s.Register(pid)
	_, ch, _ := s.Monitor(pid)

	s.Kill(pid, types.DownNormal, nil)
	<-ch

	s.Kill(pid, types.DownNormal, nil)

	select {
	case evt := <-ch:
		t.Errorf("unexpected second DownEvent: %+v", evt)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestService_DemonitorRemovesWatcher(t *testing.T) {
	s := newTestService()
	pid := newTestPid()
	s.Register(pid)

	ref, ch, _ := s.Monitor(pid)
	if err := s.Demonitor(ref, false); err != nil {
		t.Fatalf("Demonitor() failed: %v", err)
	}

	s.Kill(pid, types.DownNormal, nil)

	select {
	case evt := <-ch:
		t.Errorf("demonitored channel should not receive a DownEvent, got %+v", evt)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestService_DemonitorFlushDropsStaleDown(t *testing.T) {
	s := newTestService()
	pid := newTestPid()
	s.Register(pid)

	ref, ch, _ := s.Monitor(pid)
	s.Kill(pid, types.DownNormal, nil)

	if err := s.Demonitor(ref, true); err != nil {
		t.Fatalf("Demonitor() failed: %v", err)
	}

	select {
	case evt := <-ch:
		t.Errorf("flush should have discarded the stale DownEvent, got %+v", evt)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestService_OtherWatchersUnaffectedByDemonitor(t *testing.T) {
	s := newTestService()
	pid := newTestPid()
	s.Register(pid)

	ref1, ch1, _ := s.Monitor(pid)
	_, ch2, _ := s.Monitor(pid)

	if err := s.Demonitor(ref1, false); err != nil {
		t.Fatalf("Demonitor() failed: %v", err)
	}

	s.Kill(pid, types.DownNormal, nil)

	select {
	case <-ch1:
		t.Error("demonitored watcher should not receive a DownEvent")
	case <-time.After(50 * time.Millisecond):
	}

	select {
	case evt := <-ch2:
		if !evt.Pid.Equal(pid) {
			t.Errorf("DownEvent pid = %v, want %v", evt.Pid, pid)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for DownEvent on the remaining watcher")
	}
}

func TestService_ResolveKillCarriesInfo(t *testing.T) {
	s := newTestService()
	pid := newTestPid()
	s.Register(pid)
	_, ch, _ := s.Monitor(pid)

	info := &types.ResolveKillInfo{Name: "svc", Meta: "meta"}
	s.Kill(pid, types.DownResolveKill, info)

	evt := <-ch
	if evt.ResolveRef == nil || evt.ResolveRef.Name != "svc" {
		t.Errorf("DownEvent.ResolveRef = %+v, want Name=svc", evt.ResolveRef)
	}
}

func TestService_StopClearsState(t *testing.T) {
	s := newTestService()
	pid := newTestPid()
	s.Register(pid)

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("Stop() failed: %v", err)
	}

	if _, _, err := s.Monitor(pid); err != ErrServiceClosed {
		t.Errorf("Monitor() after Stop() = %v, want ErrServiceClosed", err)
	}
}
