package evasion

// NavigatorOverrides runs before any page script. It hides the automation
// flag and reports a plausible plugin list, locale and permission state.
const NavigatorOverrides = `(() => {
  try { delete Object.getPrototypeOf(navigator).webdriver; } catch (e) {}
  Object.defineProperty(navigator, 'plugins', {
    get: () => [1, 2, 3, 4, 5]
  });
  Object.defineProperty(navigator, 'languages', {
    get: () => ['es-ES', 'es', 'en']
  });
  Object.defineProperty(navigator, 'permissions', {
    get: () => ({
      query: () => Promise.resolve({ state: 'granted' })
    })
  });
})();`
