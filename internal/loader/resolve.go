package loader

import "go.uber.org/zap"

// resolve picks the ciphertext of l for the database format, selecting
// the format on the first line that needs one. It returns the piece count,
// 0 when the line does not belong to the pinned format, or -1 when no
// format recognizes it.
func (d *Database) resolve(l *Line) (int, error) {
	if d.format != nil {
		if prepared := d.format.Prepare(&l.Fields); prepared != "" {
			if n := d.format.Valid(prepared); n > 0 {
				l.Ciphertext = prepared
				return n, nil
			}
		}
		d.warnOtherFormat(l)
		return 0, nil
	}

	list := d.registry.List()
	selected := -1
	for _, alt := range list {
		label := alt.Params().Label
		if len(list) > 1 && d.registry.Disabled(label) {
			continue
		}
		prepared := alt.Prepare(&l.Fields)
		if prepared == "" {
			continue
		}
		n := alt.Valid(prepared)
		if n <= 0 {
			continue
		}
		if selected < 0 {
			selected = n
			l.Ciphertext = prepared
			if err := d.setFormat(alt); err != nil {
				return 0, err
			}
			if !d.opts.WarnAmbiguous {
				break
			}
			continue
		}
		first := d.format.Params().Label
		if d.registry.Warn(first + "\x00" + label) {
			d.log.Warn("hash also recognized as another type",
				zap.String("format", first),
				zap.String("also", label))
		}
	}
	return selected, nil
}

// warnOtherFormat reports, once per format, that a line skipped by the
// pinned format would load under another one.
func (d *Database) warnOtherFormat(l *Line) {
	current := d.format.Params().Label
	for _, alt := range d.registry.List() {
		label := alt.Params().Label
		if alt == d.format || d.registry.Warned(label) || d.registry.Disabled(label) {
			continue
		}
		if alt.Valid(alt.Prepare(&l.Fields)) > 0 {
			d.registry.Warn(label)
			d.log.Warn("only loading hashes of the pinned type, but also saw another",
				zap.String("format", current),
				zap.String("also", label))
			return
		}
	}
}
