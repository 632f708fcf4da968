package sonify_test

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/okian/parakeet/internal/domain/sonify"
	. "github.com/smartystreets/goconvey/convey"
)

func TestSonifier_NoteFor(t *testing.T) {
	Convey("Given the default sonifier", t, func() {
		s := sonify.New()

		Convey("When the energy equals the reference", func() {
			n := s.NoteFor(1)

			Convey("Then concert A is played", func() {
				So(n.Frequency, ShouldAlmostEqual, 440.0, 1e-9)
				So(n.MIDI, ShouldEqual, 69)
				So(n.Name, ShouldEqual, "A4")
				So(n.Rest, ShouldBeFalse)
			})
		})

		Convey("When the energy is e", func() {
			n := s.NoteFor(math.E)

			Convey("Then the pitch rises one semitone", func() {
				So(n.Frequency, ShouldAlmostEqual, 440*math.Pow(2, 1.0/12), 1e-9)
				So(n.Name, ShouldEqual, "A#4")
			})
		})

		Convey("When the energy follows the log formula", func() {
			for _, e := range []float64{2.3, 150000, 0.01} {
				want := 440 * math.Exp(math.Ln2*math.Log(e)/12)
				So(s.NoteFor(e).Frequency, ShouldAlmostEqual, want, 1e-6)
			}
		})

		Convey("When energies increase", func() {
			Convey("Then frequencies never decrease", func() {
				prev := 0.0
				for e := 0.5; e < 1e7; e *= 3 {
					f := s.NoteFor(e).Frequency
					So(f, ShouldBeGreaterThanOrEqualTo, prev)
					prev = f
				}
			})
		})

		Convey("When the energy is zero, negative or NaN", func() {
			for _, e := range []float64{0, -3, math.NaN(), math.Inf(1)} {
				n := s.NoteFor(e)
				So(n.Rest, ShouldBeTrue)
				So(n.Frequency, ShouldEqual, 0.0)
			}
		})

		Convey("When the key would leave the piano range", func() {
			low := s.NoteFor(1e-30)
			So(low.MIDI, ShouldEqual, 21)
			So(low.Name, ShouldEqual, "A0")
		})
	})

	Convey("Given a quantizing sonifier with a narrow range", t, func() {
		s := sonify.New(sonify.WithQuantize(true), sonify.WithRange(60, 72))

		Convey("Then frequencies land on keys", func() {
			n := s.NoteFor(2.3)
			So(n.Frequency, ShouldAlmostEqual, sonify.KeyFrequency(n.MIDI), 1e-9)
		})

		Convey("Then high energies clamp to the top key", func() {
			n := s.NoteFor(1e9)
			So(n.MIDI, ShouldEqual, 72)
			So(n.Name, ShouldEqual, "C5")
			So(n.Frequency, ShouldAlmostEqual, 523.2511306, 1e-6)
		})
	})

	Convey("Given a very steep mapping", t, func() {
		s := sonify.New(sonify.WithSemitonesPerE(1e6))

		Convey("Then extreme energies stay on the range edges with finite frequencies", func() {
			high := s.NoteFor(1e9)
			So(high.MIDI, ShouldEqual, 108)
			So(high.Frequency, ShouldAlmostEqual, sonify.KeyFrequency(108), 1e-9)
			low := s.NoteFor(1e-9)
			So(low.MIDI, ShouldEqual, 21)
			So(low.Frequency, ShouldAlmostEqual, sonify.KeyFrequency(21), 1e-9)

			_, err := json.Marshal(high)
			So(err, ShouldBeNil)
		})

		Convey("Then an infinite slope is ignored", func() {
			n := sonify.New(sonify.WithSemitonesPerE(math.Inf(1))).NoteFor(1)
			So(n.Rest, ShouldBeFalse)
			So(n.MIDI, ShouldEqual, 69)
		})
	})

	Convey("Given a custom reference", t, func() {
		s := sonify.New(sonify.WithReference(261.6255653, 1000), sonify.WithSemitonesPerE(2))
		n := s.NoteFor(1000)
		So(n.MIDI, ShouldEqual, 60)
		So(n.Name, ShouldEqual, "C4")
	})
}

func TestKeyName(t *testing.T) {
	Convey("Given MIDI keys", t, func() {
		So(sonify.KeyName(60), ShouldEqual, "C4")
		So(sonify.KeyName(61), ShouldEqual, "C#4")
		So(sonify.KeyName(108), ShouldEqual, "C8")
		So(sonify.KeyName(0), ShouldEqual, "C-1")
		So(sonify.KeyName(200), ShouldEqual, "?200")
	})
}
