package bencode

// Typed accessors. The Get* variants fail with *MissingKeyError when the key
// is absent; the Lookup* variants report absence through ok and only fail on
// a kind mismatch.

func AsDict(v Value) (Dict, error) {
	d, ok := v.(Dict)
	if !ok {
		return nil, &TypeError{Want: KindDict, Got: kindOf(v)}
	}
	return d, nil
}

func AsList(v Value) (List, error) {
	l, ok := v.(List)
	if !ok {
		return nil, &TypeError{Want: KindList, Got: kindOf(v)}
	}
	return l, nil
}

func AsInt(v Value) (int64, error) {
	i, ok := v.(Integer)
	if !ok {
		return 0, &TypeError{Want: KindInteger, Got: kindOf(v)}
	}
	return int64(i), nil
}

func AsBytes(v Value) ([]byte, error) {
	b, ok := v.(ByteString)
	if !ok {
		return nil, &TypeError{Want: KindByteString, Got: kindOf(v)}
	}
	return []byte(b), nil
}

func kindOf(v Value) Kind {
	if v == nil {
		return 0
	}
	return v.Kind()
}

func (d Dict) Has(key string) bool {
	_, ok := d[key]
	return ok
}

func (d Dict) GetInt(key string) (int64, error) {
	i, ok, err := d.LookupInt(key)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, &MissingKeyError{Key: key}
	}
	return i, nil
}

func (d Dict) LookupInt(key string) (int64, bool, error) {
	v, ok := d[key]
	if !ok {
		return 0, false, nil
	}
	i, isInt := v.(Integer)
	if !isInt {
		return 0, true, &TypeError{Key: key, Want: KindInteger, Got: kindOf(v)}
	}
	return int64(i), true, nil
}

func (d Dict) GetBytes(key string) ([]byte, error) {
	b, ok, err := d.LookupBytes(key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &MissingKeyError{Key: key}
	}
	return b, nil
}

func (d Dict) LookupBytes(key string) ([]byte, bool, error) {
	v, ok := d[key]
	if !ok {
		return nil, false, nil
	}
	b, isBytes := v.(ByteString)
	if !isBytes {
		return nil, true, &TypeError{Key: key, Want: KindByteString, Got: kindOf(v)}
	}
	return []byte(b), true, nil
}

func (d Dict) GetString(key string) (string, error) {
	b, err := d.GetBytes(key)
	return string(b), err
}

func (d Dict) LookupString(key string) (string, bool, error) {
	b, ok, err := d.LookupBytes(key)
	return string(b), ok, err
}

func (d Dict) GetList(key string) (List, error) {
	v, ok := d[key]
	if !ok {
		return nil, &MissingKeyError{Key: key}
	}
	l, isList := v.(List)
	if !isList {
		return nil, &TypeError{Key: key, Want: KindList, Got: kindOf(v)}
	}
	return l, nil
}

func (d Dict) GetDict(key string) (Dict, error) {
	v, ok := d[key]
	if !ok {
		return nil, &MissingKeyError{Key: key}
	}
	sub, isDict := v.(Dict)
	if !isDict {
		return nil, &TypeError{Key: key, Want: KindDict, Got: kindOf(v)}
	}
	return sub, nil
}

// Strings converts a list of byte strings.
func (l List) Strings() ([]string, error) {
	ret := make([]string, 0, len(l))
	for _, v := range l {
		b, err := AsBytes(v)
		if err != nil {
			return nil, err
		}
		ret = append(ret, string(b))
	}
	return ret, nil
}
