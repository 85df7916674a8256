package pointcloud

import (
	"strconv"
	"strings"
	"testing"

	"go.viam.com/test"

	"github.com/Kabilan-n/voxblox/colormap"
)

func TestDecodeXYZOnly(t *testing.T) {
	cloud, err := Decode(strings.NewReader("FIELDS x y z\n1 2 3\n4 5 6\n"), nil, 0)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cloud.Len(), test.ShouldEqual, 2)
	test.That(t, cloud.Colors[0].A, test.ShouldEqual, uint8(255))
}

func TestDecodeXYZRGB(t *testing.T) {
	packed := (255 << 16) | (0 << 8) | 0
	line := "1 2 3 " + strconv.Itoa(packed)
	cloud, err := Decode(strings.NewReader("FIELDS x y z rgb\n"+line+"\n"), nil, 0)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cloud.Colors[0].R, test.ShouldEqual, uint8(255))
	test.That(t, cloud.Colors[0].G, test.ShouldEqual, uint8(0))
}

func TestDecodeXYZIntensityRequiresColormap(t *testing.T) {
	_, err := Decode(strings.NewReader("FIELDS x y z intensity\n1 2 3 50\n"), nil, 100)
	test.That(t, err, test.ShouldNotBeNil)

	m, err := colormap.Lookup(colormap.Grayscale)
	test.That(t, err, test.ShouldBeNil)
	cloud, err := Decode(strings.NewReader("FIELDS x y z intensity\n1 2 3 50\n"), m, 100)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cloud.Len(), test.ShouldEqual, 1)
}
