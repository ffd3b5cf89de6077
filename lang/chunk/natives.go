package chunk

// PredeclaredNames lists the host-implemented functions available to every
// script without any import or declaration (spec section 4.4.5: clock()).
// Because rlox has no global variable table, these are not looked up by
// name at runtime: the compiler reserves one local slot per entry, in this
// order, at the top of the script's own function (immediately after the
// reserved self slot), and lang/machine seeds those same slots with the
// corresponding native function value before running the script. Both
// sides range over this slice so the slot assignment can never drift out
// of sync.
var PredeclaredNames = []string{"clock"}
