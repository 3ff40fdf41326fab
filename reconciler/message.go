package reconciler

import "fmt"

func stopMovedMessage(instrument string, from, to float64) string {
	if from == 0 {
		return fmt.Sprintf("🛡 %s protected, stop placed at %.4f", instrument, to)
	}
	return fmt.Sprintf("🛡 %s stop moved %.4f → %.4f", instrument, from, to)
}
