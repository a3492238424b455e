package delta

import "reflect"

func attributesEqual(a, b Attributes) bool {
	if len(a) == 0 && len(b) == 0 {
		return true
	}
	return reflect.DeepEqual(a, b)
}

func (a Attributes) clone() Attributes {
	if len(a) == 0 {
		return nil
	}
	out := make(Attributes, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// composeAttributes merges b over a. Keys explicitly set to nil in b are
// removed unless keepNull is set, which is the case when the result is still
// a retain and must carry the removal forward.
func composeAttributes(a, b Attributes, keepNull bool) Attributes {
	out := make(Attributes, len(a)+len(b))
	for k, v := range b {
		if v == nil && !keepNull {
			continue
		}
		out[k] = v
	}
	for k, v := range a {
		if _, ok := b[k]; !ok {
			out[k] = v
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// transformAttributes rebases b over a. With priority, keys a already set
// win and are dropped from b.
func transformAttributes(a, b Attributes, priority bool) Attributes {
	if len(a) == 0 {
		return b.clone()
	}
	if len(b) == 0 {
		return nil
	}
	if !priority {
		return b.clone()
	}
	out := make(Attributes, len(b))
	for k, v := range b {
		if _, ok := a[k]; !ok {
			out[k] = v
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
