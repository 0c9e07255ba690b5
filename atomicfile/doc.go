/*
Package atomicfile writes files in a way that never leaves a partially
written destination file behind:

- write goes to a temporary file in the same directory

- errors from `Write()`, `Sync()` and `Close()` are all checked

- the temporary file is renamed over the destination only when all of them succeeded

mappedfile uses it for the `.len` file that records the logical length of
a memory-mapped file. A torn length would make the store replay garbage.

	func writeToFileAtomically(filePath string, data []byte) error {
		w, err := atomicfile.New(filePath)
		if err != nil {
			return err
		}
		// calling Close() twice is a no-op
		defer w.Close()

		_, err = w.Write(data)
		if err != nil {
			return err
		}
		return w.Close()
	}

For the common case use WriteFile(filePath, data).
*/
package atomicfile
