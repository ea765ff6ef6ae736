package scene

import (
	"worldview/engine/render"
	"worldview/hal"
)

const (
	orbitStep = 0.08
	zoomStep  = 0.1
)

// pollInput drains pending key events without blocking.
func (s *Scene) pollInput() {
	if s.kbd == nil {
		return
	}
	ch := s.kbd.Events()
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				s.kbd = nil
				return
			}
			if ev.Press {
				s.handleKey(ev)
			}
		default:
			return
		}
	}
}

func (s *Scene) handleKey(ev hal.KeyEvent) {
	switch ev.Code {
	case hal.KeyLeft:
		s.orbit.Rotate(-orbitStep, 0)
	case hal.KeyRight:
		s.orbit.Rotate(orbitStep, 0)
	case hal.KeyUp:
		s.orbit.Rotate(0, orbitStep)
	case hal.KeyDown:
		s.orbit.Rotate(0, -orbitStep)
	case hal.KeyPageUp:
		s.orbit.Zoom(-s.orbit.Radius * zoomStep)
	case hal.KeyPageDown:
		s.orbit.Zoom(s.orbit.Radius * zoomStep)
	case hal.KeyHome:
		s.orbit.Yaw, s.orbit.Pitch = 0, 0.6
	case hal.KeyF1:
		if s.console != nil {
			s.console.Toggle()
		}
	case hal.KeyF2:
		s.renderer.Mode = nextMode(s.renderer.Mode)
		s.log.Info("scene: render mode", "mode", modeName(s.renderer.Mode))
	case hal.KeyF3:
		if s.hud != nil {
			s.hud.Visible = !s.hud.Visible
		}
	}
}

func nextMode(m render.Mode) render.Mode {
	switch m {
	case render.Wireframe:
		return render.SolidFlat
	case render.SolidFlat:
		return render.SolidVertexColor
	default:
		return render.Wireframe
	}
}

func modeName(m render.Mode) string {
	switch m {
	case render.Wireframe:
		return "wireframe"
	case render.SolidFlat:
		return "flat"
	default:
		return "vertex-color"
	}
}
