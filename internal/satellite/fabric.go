package satellite

import "fmt"

// initComponents initializes mode, sound, microphone, wake in that fixed
// order; a failure destroys whichever of them already succeeded, in
// reverse order, and aborts Run.
func (s *Satellite) initComponents() error {
	type step struct {
		name string
		init func() error
	}
	steps := []step{
		{"mode", func() error { return s.mode.Init(s) }},
	}
	if s.sound != nil {
		steps = append(steps, step{"sound", func() error { return s.sound.Init(s.ctx) }})
	}
	if s.mic != nil {
		steps = append(steps, step{"microphone", func() error {
			if err := s.mic.Init(s.ctx); err != nil {
				return err
			}
			return s.mic.StartStream()
		}})
	}
	if s.wake != nil {
		steps = append(steps, step{"wake", func() error { return s.wake.Init(s.ctx) }})
	}

	var initialized []string
	for _, st := range steps {
		if err := st.init(); err != nil {
			s.destroyComponents(initialized)
			return fmt.Errorf("satellite: component %q failed to init: %w", st.name, err)
		}
		initialized = append(initialized, st.name)
	}
	return nil
}

// destroyComponents tears down the named components in reverse order.
func (s *Satellite) destroyComponents(names []string) {
	for i := len(names) - 1; i >= 0; i-- {
		switch names[i] {
		case "mode":
			_ = s.mode.Destroy(s)
		case "sound":
			_ = s.sound.Destroy(s.ctx)
		case "microphone":
			_ = s.mic.Destroy(s.ctx)
		case "wake":
			_ = s.wake.Destroy(s.ctx)
		}
	}
}

// routeMicData implements the fabric's routing rule: MIC_DATA goes to the
// mode, never broadcast.
func (s *Satellite) routeMicData(buf []byte) {
	if s.mode == nil {
		return
	}
	s.mode.HandleSysEvent(s, SysMicData, MicDataParams{Data: buf})
}

// routeWakeDetection implements the fabric's routing rule: WAKE_DETECTION
// goes to the mode.
func (s *Satellite) routeWakeDetection() {
	if s.mode == nil {
		return
	}
	s.mode.HandleSysEvent(s, SysWakeDetection, nil)
}

func (s *Satellite) routeSatConnect() {
	if s.mode != nil {
		s.mode.HandleSysEvent(s, SysSatConnect, nil)
	}
}

func (s *Satellite) routeSatDisconnect() {
	if s.mode != nil {
		s.mode.HandleSysEvent(s, SysSatDisconnect, nil)
	}
}
