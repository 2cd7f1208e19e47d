// Package jsonstream extracts independent JSON values from a single buffer.
//
// The Docker daemon frequently writes several JSON documents back to back
// without separators (pull progress, build output, event streams). A plain
// json.Unmarshal rejects such input; Decode walks it one value at a time:
//
//	for raw, err := range jsonstream.Decode(`{"a":1}{"b":2}`) {
//		if err != nil {
//			return err
//		}
//		fmt.Println(string(raw))
//	}
package jsonstream
