package vision

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"github.com/shayanshabani/MotionGuard-IoT-and-Vision-Integration/internal/config"
	"github.com/shayanshabani/MotionGuard-IoT-and-Vision-Integration/internal/constants"
)

const labelFont = gocv.FontHersheySimplex

// Annotator burns a text label into an image file in place.
type Annotator struct{}

// NewAnnotator creates an annotator drawing at the fixed label position.
func NewAnnotator() *Annotator {
	return &Annotator{}
}

// Annotate draws text at (LabelX, LabelY) in color c and overwrites the file.
func (a *Annotator) Annotate(path, text string, c config.BGR) error {
	img := gocv.IMRead(path, gocv.IMReadColor)
	defer img.Close()
	if img.Empty() {
		return fmt.Errorf("%w: %s", ErrImageUnreadable, path)
	}

	gocv.PutText(&img, Label(text), image.Pt(constants.LabelX, constants.LabelY),
		labelFont, constants.LabelFontScale, c.RGBA(), constants.LabelThickness)

	if !gocv.IMWrite(path, img) {
		return fmt.Errorf("%w: %s", ErrImageWrite, path)
	}
	return nil
}

// Region returns the rectangle the label for text can touch, including stroke
// thickness and descenders. Pixels outside it are never modified by Annotate.
func Region(text string) image.Rectangle {
	size := gocv.GetTextSize(Label(text), labelFont, constants.LabelFontScale, constants.LabelThickness)
	pad := 4 * constants.LabelThickness
	return image.Rect(
		constants.LabelX-pad,
		constants.LabelY-size.Y-pad,
		constants.LabelX+size.X+pad,
		constants.LabelY+size.Y/2+pad,
	)
}
