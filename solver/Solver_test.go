package solver

import "testing"

func TestCreate(t *testing.T) {
	for _, kind := range []Type{Adam, RMSProp, Vanilla, "ADAM"} {
		c := Default(0.001)
		c.Type = kind
		if s, err := c.Create(1); err != nil || s == nil {
			t.Errorf("%v: could not create solver: %v", kind, err)
		}
	}

	c := Default(0)
	if _, err := c.Create(1); err == nil {
		t.Error("expected an error for a zero step size")
	}

	c = Default(0.001)
	c.Type = "lbfgs"
	if _, err := c.Create(1); err == nil {
		t.Error("expected an error for an unknown solver")
	}
}
