package colormap

import (
	"testing"

	"go.viam.com/test"
)

func TestLookupKnownKinds(t *testing.T) {
	for _, k := range []Kind{Rainbow, InverseRainbow, Grayscale, InverseGrayscale, Ironbow} {
		m, err := Lookup(k)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, m, test.ShouldNotBeNil)
	}
}

func TestLookupUnknownKind(t *testing.T) {
	_, err := Lookup(Kind("not-a-map"))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestGrayscaleBounds(t *testing.T) {
	black := grayscale(0, 100)
	white := grayscale(100, 100)
	test.That(t, black.R, test.ShouldEqual, uint8(0))
	test.That(t, white.R, test.ShouldEqual, uint8(255))
}

func TestGrayscaleClampsOutOfRange(t *testing.T) {
	over := grayscale(1000, 100)
	under := grayscale(-10, 100)
	test.That(t, over, test.ShouldResemble, grayscale(100, 100))
	test.That(t, under, test.ShouldResemble, grayscale(0, 100))
}

func TestInverseIsMirror(t *testing.T) {
	a := grayscale(25, 100)
	b := inverseGrayscale(75, 100)
	test.That(t, a, test.ShouldResemble, b)
}
