package main

/*
#include "bridge.h"
extern int32_t ApplyUpdate(LossWrapper *, ApplyUpdateBridge *);

static ApplyUpdateFn applyUpdateEntry(void) {
	return (ApplyUpdateFn)ApplyUpdate;
}

static int32_t callApplyUpdate(ApplyUpdateFn f, LossWrapper * w, ApplyUpdateBridge * b) {
	if (f == NULL) {
		return -5; // InvalidParameter
	}
	return f(w, b);
}
*/
import "C"

//applyUpdatePointer is the C address of the exported ApplyUpdate; createLoss
//stores it in every wrapper it fills.
func applyUpdatePointer() C.ApplyUpdateFn {
	return C.applyUpdateEntry()
}

//callApplyUpdate goes through the pointer stored in w, as a C caller does.
func callApplyUpdate(w *C.LossWrapper, b *C.ApplyUpdateBridge) C.int32_t {
	return C.callApplyUpdate(w.applyUpdate, w, b)
}
