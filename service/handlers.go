package service

import (
	"fmt"

	"github.com/mickamy/kvtap/kverrors"
	"github.com/mickamy/kvtap/storage"
	"github.com/mickamy/kvtap/wire"
)

// dispatchUnary executes every CommandRequest op that produces exactly one
// reply from the store, with no interaction with the broadcaster.
func dispatchUnary(req wire.CommandRequest, store storage.Storage) wire.CommandResponse {
	switch req.Op {
	case wire.OpHget:
		return hget(req, store)
	case wire.OpHset:
		return hset(req, store)
	case wire.OpHdel:
		return hdel(req, store)
	case wire.OpHexist:
		return hexist(req, store)
	case wire.OpHgetall:
		return hgetall(req, store)
	case wire.OpHmget:
		return hmget(req, store)
	case wire.OpHmset:
		return hmset(req, store)
	case wire.OpHmdel:
		return hmdel(req, store)
	case wire.OpHmexist:
		return hmexist(req, store)
	default:
		return wire.ErrorResponse(&kverrors.InvalidCommandError{Detail: fmt.Sprintf("unsupported op %s", req.Op)})
	}
}

func hget(req wire.CommandRequest, s storage.Storage) wire.CommandResponse {
	v, ok, err := s.Get(req.Table, req.Key)
	if err != nil {
		return wire.ErrorResponse(&kverrors.StorageError{Op: "get", Err: err})
	}
	if !ok {
		return wire.ErrorResponse(&kverrors.NotFoundError{Table: req.Table, Key: req.Key})
	}
	return wire.OKValues([]wire.Value{v})
}

// hset returns 200 with the previous value when one existed, or an Unset
// Value when the key was new. Only a storage failure is an error.
func hset(req wire.CommandRequest, s storage.Storage) wire.CommandResponse {
	prev, had, err := s.Set(req.Table, req.Pair.Key, req.Pair.Value)
	if err != nil {
		return wire.ErrorResponse(&kverrors.StorageError{Op: "set", Err: err})
	}
	if !had {
		return wire.OKValues([]wire.Value{{}})
	}
	return wire.OKValues([]wire.Value{prev})
}

// hdel returns 200 with the deleted value, or an Unset Value when the key
// did not exist. A miss is not an error here, unlike hget; only a storage
// failure is.
func hdel(req wire.CommandRequest, s storage.Storage) wire.CommandResponse {
	prev, had, err := s.Del(req.Table, req.Key)
	if err != nil {
		return wire.ErrorResponse(&kverrors.StorageError{Op: "del", Err: err})
	}
	if !had {
		return wire.OKValues([]wire.Value{{}})
	}
	return wire.OKValues([]wire.Value{prev})
}

func hexist(req wire.CommandRequest, s storage.Storage) wire.CommandResponse {
	ok, err := s.Contains(req.Table, req.Key)
	if err != nil {
		return wire.ErrorResponse(&kverrors.StorageError{Op: "contains", Err: err})
	}
	return wire.OKValues([]wire.Value{wire.BoolValue(ok)})
}

func hgetall(req wire.CommandRequest, s storage.Storage) wire.CommandResponse {
	pairs, err := s.GetAll(req.Table)
	if err != nil {
		return wire.ErrorResponse(&kverrors.StorageError{Op: "get_all", Err: err})
	}
	return wire.OKPairs(pairs)
}

// hmget substitutes an Unset Value for any key that misses or errors,
// rather than shortening the result or failing the whole request.
func hmget(req wire.CommandRequest, s storage.Storage) wire.CommandResponse {
	values := make([]wire.Value, len(req.Keys))
	for i, key := range req.Keys {
		v, ok, err := s.Get(req.Table, key)
		if err != nil || !ok {
			continue
		}
		values[i] = v
	}
	return wire.OKValues(values)
}

// hmset returns, per pair, the value that was previously stored under its
// key (or Unset if there was none or the write failed).
func hmset(req wire.CommandRequest, s storage.Storage) wire.CommandResponse {
	values := make([]wire.Value, len(req.Pairs))
	for i, pair := range req.Pairs {
		prev, had, err := s.Set(req.Table, pair.Key, pair.Value)
		if err != nil || !had {
			continue
		}
		values[i] = prev
	}
	return wire.OKValues(values)
}

func hmdel(req wire.CommandRequest, s storage.Storage) wire.CommandResponse {
	values := make([]wire.Value, len(req.Keys))
	for i, key := range req.Keys {
		prev, had, err := s.Del(req.Table, key)
		if err != nil || !had {
			continue
		}
		values[i] = prev
	}
	return wire.OKValues(values)
}

func hmexist(req wire.CommandRequest, s storage.Storage) wire.CommandResponse {
	values := make([]wire.Value, len(req.Keys))
	for i, key := range req.Keys {
		ok, err := s.Contains(req.Table, key)
		if err != nil {
			continue
		}
		values[i] = wire.BoolValue(ok)
	}
	return wire.OKValues(values)
}
