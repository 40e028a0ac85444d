package initwfn

import "testing"

func TestCreate(t *testing.T) {
	valid := []Config{
		{Type: GlorotU, Gain: 1},
		{Type: "HE_NORMAL", Gain: 2},
		{Type: Gaussian, StdDev: 0.1},
		{Type: Uniform, Low: -1, High: 1},
		{Type: Zeroes},
	}
	for _, c := range valid {
		if init, err := c.Create(); err != nil || init == nil {
			t.Errorf("%v: could not create: %v", c, err)
		}
	}

	invalid := []Config{
		{Type: GlorotU},
		{Type: Gaussian},
		{Type: Uniform, Low: 1, High: 1},
		{Type: "orthogonal"},
	}
	for _, c := range invalid {
		if _, err := c.Create(); err == nil {
			t.Errorf("%+v: expected an error", c)
		}
	}
}
