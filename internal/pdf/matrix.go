package pdf

// matrix is a PDF transformation matrix [a b c d e f]
type matrix [6]float64

var identity = matrix{1, 0, 0, 1, 0, 0}

func translate(tx, ty float64) matrix {
	return matrix{1, 0, 0, 1, tx, ty}
}

// mul returns m × n using the PDF row-vector convention
func (m matrix) mul(n matrix) matrix {
	return matrix{
		m[0]*n[0] + m[1]*n[2],
		m[0]*n[1] + m[1]*n[3],
		m[2]*n[0] + m[3]*n[2],
		m[2]*n[1] + m[3]*n[3],
		m[4]*n[0] + m[5]*n[2] + n[4],
		m[4]*n[1] + m[5]*n[3] + n[5],
	}
}

func (m matrix) apply(x, y float64) (float64, float64) {
	return m[0]*x + m[2]*y + m[4], m[1]*x + m[3]*y + m[5]
}

// bounds maps the rectangle (x0,y0)-(x1,y1) through m and returns its bounding box
func (m matrix) bounds(x0, y0, x1, y1 float64) Rect {
	var r Rect
	for i, p := range [4][2]float64{{x0, y0}, {x1, y0}, {x0, y1}, {x1, y1}} {
		x, y := m.apply(p[0], p[1])
		if i == 0 {
			r = Rect{x, y, x, y}
			continue
		}
		if x < r.X0 {
			r.X0 = x
		}
		if x > r.X1 {
			r.X1 = x
		}
		if y < r.Y0 {
			r.Y0 = y
		}
		if y > r.Y1 {
			r.Y1 = y
		}
	}
	return r
}
