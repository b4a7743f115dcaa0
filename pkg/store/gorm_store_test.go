package store

import "testing"

func TestQueueLockIDStablePerGuruji(t *testing.T) {
	a := queueLockID("guruji-a")
	if b := queueLockID("guruji-a"); b != a {
		t.Fatalf("same guruji hashed to %d and %d", a, b)
	}
	if c := queueLockID("guruji-b"); c == a {
		t.Fatalf("distinct gurujis share lock key %d", a)
	}
	if queueLockID("") == queueLockID("guruji-a") {
		t.Fatal("empty id collides with a real one")
	}
	if a == migrateLockID {
		t.Fatalf("queue key %d collides with the migration lock", a)
	}
}
