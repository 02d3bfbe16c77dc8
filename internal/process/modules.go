package process

import (
	"context"
	"fmt"
	"math"

	"github.com/chrissnell/icemass/internal/forcing"
	"github.com/chrissnell/icemass/internal/smb"
	"gonum.org/v1/gonum/mat"
)

// ClimateModule refreshes s.Forcing from Source every step. With
// UseDerivedMask set, a source without an ice mask gets s.IceMask instead.
type ClimateModule struct {
	Source         forcing.Source
	UseDerivedMask bool
}

func (c *ClimateModule) Name() string { return "climate" }

func (c *ClimateModule) Initialize(_ context.Context, s *State) error {
	if c.Source == nil {
		return smb.ErrNoForcing
	}
	return c.load(s)
}

func (c *ClimateModule) Update(_ context.Context, s *State) error {
	return c.load(s)
}

func (c *ClimateModule) Finalize(context.Context, *State) error { return nil }

func (c *ClimateModule) load(s *State) error {
	f, err := c.Source.Forcing(s.T)
	if err != nil {
		return err
	}
	if c.UseDerivedMask && f.IceMask == nil && s.IceMask != nil {
		f.IceMask = s.IceMask
	}
	s.Forcing = f
	return nil
}

// SMBModule runs the mass-balance updater. OnUpdate is called after every
// fired update with s.SMB already set.
type SMBModule struct {
	Updater  *smb.Updater
	OnUpdate func(ctx context.Context, s *State) error
}

func (m *SMBModule) Name() string { return "smb" }

func (m *SMBModule) Initialize(_ context.Context, s *State) error {
	if m.Updater == nil {
		return fmt.Errorf("smb module has no updater")
	}
	// a restored updater already carries a field
	if cur := m.Updater.SMB(); cur != nil {
		s.SMB = cur
	}
	return nil
}

func (m *SMBModule) Update(ctx context.Context, s *State) error {
	fired, err := m.Updater.Update(s.T, s.Forcing)
	if err != nil {
		return err
	}
	if !fired {
		return nil
	}
	s.SMB = m.Updater.SMB()
	if m.OnUpdate != nil {
		return m.OnUpdate(ctx, s)
	}
	return nil
}

func (m *SMBModule) Finalize(context.Context, *State) error { return nil }

// ThicknessModule applies the surface balance to the ice column without any
// flow: thk = max(thk + smb*dt, 0).
type ThicknessModule struct {
	InitialThickness *mat.Dense
}

func (m *ThicknessModule) Name() string { return "thickness" }

func (m *ThicknessModule) Initialize(_ context.Context, s *State) error {
	if m.InitialThickness != nil {
		s.Thickness = mat.DenseCopyOf(m.InitialThickness)
		s.IceMask = iceMask(s.Thickness)
	}
	return nil
}

func (m *ThicknessModule) Update(_ context.Context, s *State) error {
	if s.SMB == nil {
		return nil
	}
	r, c := s.SMB.Dims()
	if s.Thickness == nil {
		s.Thickness = mat.NewDense(r, c, nil)
	} else if tr, tc := s.Thickness.Dims(); tr != r || tc != c {
		return fmt.Errorf("%w: thickness %dx%d, smb %dx%d", smb.ErrShapeMismatch, tr, tc, r, c)
	}

	dt := s.DT
	s.Thickness.Apply(func(i, j int, v float64) float64 {
		return math.Max(v+s.SMB.At(i, j)*dt, 0)
	}, s.Thickness)
	s.IceMask = iceMask(s.Thickness)
	return nil
}

func (m *ThicknessModule) Finalize(context.Context, *State) error { return nil }

func iceMask(thk *mat.Dense) *mat.Dense {
	r, c := thk.Dims()
	mask := mat.NewDense(r, c, nil)
	mask.Apply(func(i, j int, _ float64) float64 {
		if thk.At(i, j) > 0 {
			return 1
		}
		return 0
	}, mask)
	return mask
}
